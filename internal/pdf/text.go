package pdf

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// PageText is the plain text of a single page
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// ExtractText returns the plain text of every page in data
func ExtractText(data []byte) ([]PageText, error) {
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]PageText, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, PageText{Page: i, Text: strings.TrimSpace(text)})
	}

	return pages, nil
}
