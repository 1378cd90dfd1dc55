// Package viewer is the document viewer capability the stages drive: it holds
// the loaded document, the view state (page, zoom, scroll, rotation) and the
// annotation layer with placeholders, widgets and form fields.
package viewer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// DefaultPageGap is the vertical space between pages in window pixels
const DefaultPageGap = 10.0

// Source names the content to load. Blob wins over ContentRef when both are
// set.
type Source struct {
	ContentRef string
	Blob       []byte
}

// Empty reports whether the source has nothing to load
func (s Source) Empty() bool {
	return s.ContentRef == "" && s.Blob == nil
}

// ContentResolver maps a content reference to a readable path
type ContentResolver interface {
	Resolve(ref string) (string, error)
}

// Options configures a Session
type Options struct {
	MaxFileSize int64
	Resolver    ContentResolver
	CurrentUser string
	PageGap     float64
	Logger      *slog.Logger
}

// Session is one viewer instance. A stage controller creates a session on
// entry and drops it on exit.
type Session struct {
	mu sync.Mutex

	maxFileSize int64
	resolver    ContentResolver
	validator   *pdf.Validator
	pageGap     float64
	logger      *slog.Logger

	doc         *pdf.Document
	contentRef  string
	currentUser string

	zoom         float64
	currentPage  int
	scroll       forms.Point
	viewRotation int

	nextID       int
	placeholders []forms.Placeholder
	widgets      []string
	fields       map[string]*forms.FormField
	drawn        map[string]forms.Style
	selected     string
}

// NewSession creates an empty viewer session
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	gap := opts.PageGap
	if gap <= 0 {
		gap = DefaultPageGap
	}
	s := &Session{
		maxFileSize: opts.MaxFileSize,
		resolver:    opts.Resolver,
		validator:   pdf.NewValidator(opts.MaxFileSize),
		pageGap:     gap,
		logger:      logger,
		currentUser: opts.CurrentUser,
	}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.zoom = 1
	s.currentPage = 1
	s.scroll = forms.Point{}
	s.viewRotation = 0
	s.placeholders = nil
	s.widgets = nil
	s.fields = make(map[string]*forms.FormField)
	s.drawn = make(map[string]forms.Style)
	s.selected = ""
}

// LoadDocument replaces the current document and clears the annotation layer
func (s *Session) LoadDocument(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if src.Empty() {
		return flowerrors.New(flowerrors.ErrorTypeInvalidContentRef, "nothing to load")
	}

	data := src.Blob
	if data == nil {
		path := src.ContentRef
		if s.resolver != nil {
			resolved, err := s.resolver.Resolve(src.ContentRef)
			if err != nil {
				return err
			}
			path = resolved
		}
		var err error
		data, err = s.validator.ReadFile(path)
		if err != nil {
			return err
		}
	}

	doc, err := pdf.Open(data, s.maxFileSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.contentRef = src.ContentRef
	s.resetLocked()
	s.logger.Debug("document loaded", "content_ref", src.ContentRef, "pages", doc.PageCount(), "bytes", doc.Size())
	return nil
}

// UnloadDocument drops the document and its annotations
func (s *Session) UnloadDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	s.contentRef = ""
	s.resetLocked()
}

// IsLoaded reports whether a document is loaded
func (s *Session) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// ContentRef returns the reference the document was loaded from, if any
func (s *Session) ContentRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentRef
}

// PageCount returns the number of pages, or 0 with no document
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return 0
	}
	return s.doc.PageCount()
}

// PageInfo returns the size of a 1-based page
func (s *Session) PageInfo(page int) (geometry.PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageInfoLocked(page)
}

func (s *Session) pageInfoLocked(page int) (geometry.PageInfo, error) {
	if s.doc == nil {
		return geometry.PageInfo{}, flowerrors.ErrNoDocumentLoaded
	}
	info, err := s.doc.PageInfo(page)
	if err != nil {
		return geometry.PageInfo{}, err
	}
	return geometry.PageInfo{Width: info.Width, Height: info.Height}, nil
}

// CurrentPage returns the 1-based page in view
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

// SetCurrentPage moves the view to a 1-based page
func (s *Session) SetCurrentPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}
	if page < 1 || page > s.doc.PageCount() {
		return fmt.Errorf("invalid page number %d (document has %d pages)", page, s.doc.PageCount())
	}
	s.currentPage = page
	return nil
}

// ZoomLevel returns the current zoom factor
func (s *Session) ZoomLevel() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetZoomLevel changes the zoom factor
func (s *Session) SetZoomLevel(zoom float64) error {
	if zoom <= 0 {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidZoom, "zoom %g must be positive", zoom)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = zoom
	return nil
}

// SetScroll records the scroll offset of the view in window pixels
func (s *Session) SetScroll(offset forms.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll = offset
}

// Scroll returns the scroll offset of the view
func (s *Session) Scroll() forms.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}

// RotateClockwise turns the view a quarter turn
func (s *Session) RotateClockwise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewRotation = (s.viewRotation + 1) % 4
}

// CompleteRotation returns the rotation of a page as a quadrant (0-3),
// combining the page's own /Rotate with the view rotation
func (s *Session) CompleteRotation(page int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeRotationLocked(page)
}

func (s *Session) completeRotationLocked(page int) (int, error) {
	if s.doc == nil {
		return 0, flowerrors.ErrNoDocumentLoaded
	}
	rotation, err := s.doc.Rotation(page)
	if err != nil {
		return 0, err
	}
	return (rotation/90 + s.viewRotation) % 4, nil
}

// CurrentUser returns the author stamped on new annotations
func (s *Session) CurrentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}

// SetCurrentUser changes the author stamped on new annotations
func (s *Session) SetCurrentUser(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = user
}

// FileData returns a snapshot of the document bytes
func (s *Session) FileData() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, flowerrors.ErrNoDocumentLoaded
	}
	return s.doc.FileData(), nil
}

// Document returns the loaded document
func (s *Session) Document() (*pdf.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, flowerrors.ErrNoDocumentLoaded
	}
	return s.doc, nil
}
