package assign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
)

const rosterYAML = `
assignees:
  - email: alice@example.com
    name: Alice Smith
  - email: bob@example.com
    name: Bob Jones
  - email: carol@example.com
`

func TestParseRoster(t *testing.T) {
	r, err := ParseRoster([]byte(rosterYAML))
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, forms.Assignee{Email: "alice@example.com", Name: "Alice Smith"}, list[0])
	assert.Equal(t, "carol@example.com", list[2].Name)
	assert.Equal(t, "alice@example.com", r.Default())

	bob, ok := r.Lookup(" bob@example.com ")
	require.True(t, ok)
	assert.Equal(t, "Bob Jones", bob.Name)

	_, ok = r.Lookup("mallory@example.com")
	assert.False(t, ok)
}

func TestParseRoster_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "malformed yaml", data: "assignees: [\n"},
		{name: "missing email", data: "assignees:\n  - name: Nobody\n"},
		{name: "duplicate", data: "assignees:\n  - email: a@x\n  - email: a@x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoster([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rosterYAML), 0o600))

	r, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Len(t, r.List(), 3)

	empty, err := LoadRoster("")
	require.NoError(t, err)
	assert.Empty(t, empty.List())
	assert.Equal(t, "", empty.Default())

	_, err = LoadRoster(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelection(t *testing.T) {
	r, err := ParseRoster([]byte(rosterYAML))
	require.NoError(t, err)
	s := NewSelection(r)

	assert.Equal(t, "alice@example.com", s.Current())

	a, err := s.Select("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob Jones", a.Name)
	assert.Equal(t, "bob@example.com", s.Current())

	_, err = s.Select("mallory@example.com")
	assert.Error(t, err)
	assert.Equal(t, "bob@example.com", s.Current())

	s.Reset()
	assert.Equal(t, "alice@example.com", s.Current())
}
