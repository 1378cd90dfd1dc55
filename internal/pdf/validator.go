package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// Validator checks that uploaded content is a readable PDF within limits
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateBytes performs validation on in-memory PDF content
func (v *Validator) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return flowerrors.New(flowerrors.ErrorTypeInvalidDocument, "document is empty")
	}

	if v.maxFileSize > 0 && int64(len(data)) > v.maxFileSize {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidDocument,
			"document too large: %d bytes (max: %d bytes)", len(data), v.maxFileSize)
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return flowerrors.New(flowerrors.ErrorTypeInvalidDocument, "missing %PDF- header")
	}

	if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return flowerrors.Wrap(flowerrors.ErrorTypeInvalidDocument, "invalid PDF structure", err)
	}

	return nil
}

// ValidateFile checks a PDF on disk before it is read into memory
func (v *Validator) ValidateFile(filePath string) error {
	if filePath == "" {
		return flowerrors.New(flowerrors.ErrorTypeInvalidContentRef, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidContentRef, "file does not exist: %s", filePath)
	}
	if err != nil {
		return flowerrors.Wrap(flowerrors.ErrorTypeInvalidContentRef, "cannot access file", err)
	}

	if fileInfo.IsDir() {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidContentRef, "path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidDocument, "file is not a PDF: %s", filePath)
	}

	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidDocument, "file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// ReadFile validates and reads a PDF from disk
func (v *Validator) ReadFile(filePath string) ([]byte, error) {
	if err := v.ValidateFile(filePath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := v.ValidateBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}
