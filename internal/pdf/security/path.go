// Package security confines document content references to the configured
// document directory.
package security

import (
	"os"
	"path/filepath"
	"strings"

	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// PathValidator resolves content references against a base directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, flowerrors.New(flowerrors.ErrorTypeInvalidContentRef, "configured directory cannot be empty")
	}

	return &PathValidator{
		configuredDirectory: configuredDirectory,
	}, nil
}

// Resolve turns a content reference into an absolute path inside the
// configured directory. Relative references are taken from that directory.
func (v *PathValidator) Resolve(ref string) (string, error) {
	ref = strings.ReplaceAll(ref, "\x00", "")
	if ref == "" {
		return "", flowerrors.New(flowerrors.ErrorTypeInvalidContentRef, "content reference cannot be empty")
	}

	if !filepath.IsAbs(ref) {
		ref = filepath.Join(v.configuredDirectory, ref)
	}

	absPath, err := filepath.Abs(ref)
	if err != nil {
		return "", flowerrors.Wrap(flowerrors.ErrorTypeInvalidContentRef, "failed to resolve path", err)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}

	return absPath, nil
}

// ValidatePath checks if a path is within the configured directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return flowerrors.New(flowerrors.ErrorTypeInvalidContentRef, "path cannot be empty")
	}

	isWithin, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return err
	}

	if !isWithin {
		return flowerrors.Newf(flowerrors.ErrorTypeInvalidContentRef, "path is outside configured directory: %s", path)
	}

	return nil
}

// IsPathWithinDirectory checks if a path is within the configured directory,
// following symlinks on both sides
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, flowerrors.Wrap(flowerrors.ErrorTypeInvalidContentRef, "failed to resolve path", err)
	}

	absConfigDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, flowerrors.Wrap(flowerrors.ErrorTypeInvalidContentRef, "failed to resolve configured directory", err)
	}

	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(absConfigDir)

	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
			realPath = resolved
		}
	}

	realDir := cleanDir
	if resolved, err := filepath.EvalSymlinks(cleanDir); err == nil {
		realDir = resolved
	}

	within := func(p string) bool {
		for _, dir := range []string{cleanDir, realDir} {
			if p == dir || strings.HasPrefix(p, withSeparator(dir)) {
				return true
			}
		}
		return false
	}

	return within(cleanPath) && within(realPath), nil
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
