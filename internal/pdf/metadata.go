package pdf

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Metadata is the document information dictionary of a PDF
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Producer    string `json:"producer,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
}

// Empty reports whether no entry was found
func (m Metadata) Empty() bool {
	return m == Metadata{}
}

// ReadMetadata returns the document information dictionary of data. A file
// without one yields empty metadata.
func ReadMetadata(data []byte) (Metadata, error) {
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	return extractMetadata(reader), nil
}

func extractMetadata(r *lpdf.Reader) (m Metadata) {
	// ledongthuc panics on some malformed dictionaries
	defer func() {
		if recover() != nil {
			m = Metadata{}
		}
	}()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return m
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return m
	}

	m.Title = infoString(info, "Title")
	m.Author = infoString(info, "Author")
	m.Subject = infoString(info, "Subject")
	m.Creator = infoString(info, "Creator")
	m.Producer = infoString(info, "Producer")
	m.CreatedDate = infoString(info, "CreationDate")
	return m
}

func infoString(info lpdf.Value, key string) string {
	v := info.Key(key)
	if v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.Text())
}
