package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-pdf-signer/internal/geometry"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// Default page size used when a page carries no MediaBox
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PageInfo holds the unrotated size of a page in points
type PageInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is a loaded PDF. Content bytes are immutable after Open; form
// state lives in the viewer's annotation layer, not in the file.
type Document struct {
	data      []byte
	pages     []PageInfo
	rotations []int
	version   string
}

// Open validates data and reads page metadata with pdfcpu
func Open(data []byte, maxFileSize int64) (*Document, error) {
	if err := NewValidator(maxFileSize).ValidateBytes(data); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrorTypeInvalidDocument, "failed to read PDF context", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, flowerrors.Wrap(flowerrors.ErrorTypeInvalidDocument, "failed to ensure page count", err)
	}

	if ctx.PageCount == 0 {
		return nil, flowerrors.New(flowerrors.ErrorTypeInvalidDocument, "document has no pages")
	}

	doc := &Document{
		data:      append([]byte(nil), data...),
		pages:     make([]PageInfo, ctx.PageCount),
		rotations: make([]int, ctx.PageCount),
	}
	if ctx.HeaderVersion != nil {
		doc.version = ctx.HeaderVersion.String()
	}

	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inherited, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, flowerrors.Wrap(flowerrors.ErrorTypeInvalidDocument, fmt.Sprintf("failed to read page %d", i), err)
		}

		info := PageInfo{Width: defaultPageWidth, Height: defaultPageHeight}
		rotation := 0
		if inherited != nil {
			if inherited.MediaBox != nil {
				info = PageInfo{Width: inherited.MediaBox.Width(), Height: inherited.MediaBox.Height()}
			}
			rotation = normalizeRotation(inherited.Rotate)
		}
		doc.pages[i-1] = info
		doc.rotations[i-1] = rotation
	}

	return doc, nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.pages)
}

// PageInfo returns the size of a 1-based page
func (d *Document) PageInfo(page int) (PageInfo, error) {
	if page < 1 || page > len(d.pages) {
		return PageInfo{}, fmt.Errorf("invalid page number %d (document has %d pages)", page, len(d.pages))
	}
	return d.pages[page-1], nil
}

// Rotation returns the /Rotate value of a 1-based page, normalized to
// 0, 90, 180 or 270
func (d *Document) Rotation(page int) (int, error) {
	if page < 1 || page > len(d.rotations) {
		return 0, fmt.Errorf("invalid page number %d (document has %d pages)", page, len(d.rotations))
	}
	return d.rotations[page-1], nil
}

// Version returns the PDF header version
func (d *Document) Version() string {
	return d.version
}

// FileData returns a copy of the document bytes
func (d *Document) FileData() []byte {
	return append([]byte(nil), d.data...)
}

// Size returns the document size in bytes
func (d *Document) Size() int {
	return len(d.data)
}

func normalizeRotation(degrees int) int {
	r := geometry.NormalizeRotation(degrees)
	// Off-axis /Rotate values are invalid PDF; snap them down to a quarter turn
	return r - r%90
}
