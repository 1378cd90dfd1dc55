package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("/srv/documents")
	require.NoError(t, err)
	assert.Equal(t, "/srv/documents", v.GetConfiguredDirectory())
}

func TestPathValidator_Resolve(t *testing.T) {
	baseDir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "lease.pdf"), []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.pdf"), filepath.Join(baseDir, "link.pdf")))

	v, err := NewPathValidator(baseDir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "relative reference", ref: "lease.pdf", want: filepath.Join(baseDir, "lease.pdf")},
		{name: "absolute reference inside", ref: filepath.Join(baseDir, "lease.pdf"), want: filepath.Join(baseDir, "lease.pdf")},
		{name: "null bytes stripped", ref: "lease\x00.pdf", want: filepath.Join(baseDir, "lease.pdf")},
		{name: "traversal", ref: "../" + filepath.Base(outside) + "/secret.pdf", wantErr: true},
		{name: "absolute outside", ref: filepath.Join(outside, "secret.pdf"), wantErr: true},
		{name: "symlink escaping", ref: "link.pdf", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, flowerrors.ErrInvalidContentRef))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
