package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/assign"
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	roster, err := assign.NewRoster([]forms.Assignee{
		{Email: "alice@example.com", Name: "Alice"},
		{Email: "bob@example.com", Name: "Bob"},
	})
	require.NoError(t, err)
	return Deps{
		Store:           handoff.NewStore(),
		Selection:       assign.NewSelection(roster),
		Viewer:          viewer.Options{MaxFileSize: 1024 * 1024, CurrentUser: "preparer@example.com"},
		OutputDirectory: t.TempDir(),
	}
}

func testDocument() []byte {
	return pdftest.Build(
		pdftest.Page{Width: 600, Height: 800, Text: "Service agreement"},
		pdftest.Page{Width: 612, Height: 792, Rotate: 90, Text: "Signature page"},
	)
}

// preparedStore runs the prepare step with one field of each kind
func preparedStore(t *testing.T, deps Deps) {
	t.Helper()
	p := NewPrepare(deps)
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: testDocument()}))
	for _, kind := range []forms.Kind{forms.KindText, forms.KindSignature, forms.KindDate} {
		ph, out := p.AddField(FieldRequest{Kind: kind})
		require.NotNil(t, ph)
		require.Nil(t, out.Notification)
	}
	_, out := p.Prepare(context.Background())
	require.Equal(t, RouteSign, out.Redirect)
	p.Close()
}
