package conversion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

type resetCounter struct{ calls int }

func (r *resetCounter) Reset() { r.calls++ }

func newSession(t *testing.T) (*viewer.Session, []byte) {
	t.Helper()
	data := pdftest.Build(pdftest.Page{Width: 600, Height: 800}, pdftest.Letter)
	s := viewer.NewSession(viewer.Options{MaxFileSize: 1024 * 1024, CurrentUser: "preparer@example.com"})
	require.NoError(t, s.LoadDocument(context.Background(), viewer.Source{Blob: data}))
	return s, data
}

func addPlaceholders(t *testing.T, s *viewer.Session, kinds ...forms.Kind) []forms.Placeholder {
	t.Helper()
	var out []forms.Placeholder
	for i, kind := range kinds {
		p, err := s.AddPlaceholder(forms.Placeholder{
			Geometry: forms.Geometry{Page: 1 + i%2, X: float64(10 * i), Y: 20, Width: 250, Height: 50},
			Kind:     kind,
			Assignee: "alice@example.com",
			Label:    forms.PlaceholderLabel("alice@example.com", kind),
			Value:    "hello",
		})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "a_TEXT_n-3", FieldName("a_TEXT_", "n", 3))
	assert.NotEqual(t, FieldName("a_TEXT_", "n", 1), FieldName("a_TEXT_", "n", 11))
}

func TestConvertAll_AllValidKinds(t *testing.T) {
	s, _ := newSession(t)
	kinds := []forms.Kind{forms.KindText, forms.KindSignature, forms.KindDate, forms.KindText, forms.KindText, forms.KindSignature}
	placeholders := addPlaceholders(t, s, kinds...)
	selection := &resetCounter{}

	p := New(Options{Selection: selection, Concurrency: 2})
	res, err := p.ConvertAll(context.Background(), s)
	require.NoError(t, err)
	require.False(t, res.Cancelled)

	require.Len(t, res.Fields, len(kinds))
	assert.Empty(t, res.Dropped)
	assert.Equal(t, len(kinds), res.Deleted)
	assert.Empty(t, s.Placeholders())

	names := make(map[string]struct{})
	for i, f := range res.Fields {
		names[f.Name] = struct{}{}
		assert.Equal(t, kinds[i], f.Kind)
		assert.True(t, strings.HasPrefix(f.Name, placeholders[i].Label))
		assert.Equal(t, placeholders[i].Geometry, f.Geometry)
		assert.Equal(t, "preparer@example.com", f.Author)
	}
	assert.Len(t, names, len(kinds))

	assert.Len(t, s.Widgets(), len(kinds))
	style, ok := s.DrawnStyle(res.Fields[1].Name)
	require.True(t, ok)
	assert.Equal(t, "1px solid #a5c7ff", style["border"])

	assert.Equal(t, 1, selection.calls)
	assert.Equal(t, handoff.StagePrepared, res.Record.Stage())
	assert.Equal(t, handoff.DocIDPrepared, res.Record.DocID())
	assert.Contains(t, res.Record.Annotations(), res.Fields[0].Name)
}

func TestConvertAll_FieldValues(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText, forms.KindDate, forms.KindSignature)

	res, err := New(Options{}).ConvertAll(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, res.Fields, 3)

	assert.Equal(t, "hello", res.Fields[0].Value)
	assert.Equal(t, forms.FieldTypeText, res.Fields[0].Type)

	assert.Equal(t, forms.DateDefaultValue, res.Fields[1].Value)
	assert.Equal(t, forms.WidgetDatePicker, res.Fields[1].Widget)
	assert.Len(t, res.Fields[1].Actions[forms.TriggerFormat], 1)
	assert.Len(t, res.Fields[1].Actions[forms.TriggerKeystroke], 1)

	assert.Equal(t, forms.FieldTypeSignature, res.Fields[2].Type)
	require.NotNil(t, res.Fields[2].Appearance)
	assert.Equal(t, 100.0, res.Fields[2].Appearance.OffsetX)
	assert.Empty(t, res.Fields[2].Value)
}

func TestConvertAll_UnknownKindDropped(t *testing.T) {
	s, _ := newSession(t)
	placeholders := addPlaceholders(t, s, forms.KindText, forms.Kind("CHECKBOX"), forms.KindSignature, forms.KindDate)

	res, err := New(Options{}).ConvertAll(context.Background(), s)
	require.NoError(t, err)

	assert.Len(t, res.Fields, 3)
	assert.Equal(t, []string{placeholders[1].ID}, res.Dropped)
	assert.Equal(t, 4, res.Deleted)
	assert.Empty(t, s.Placeholders())
	assert.Len(t, s.Widgets(), 3)
}

func TestConvertAll_ZeroPlaceholders(t *testing.T) {
	s, data := newSession(t)

	res, err := New(Options{}).ConvertAll(context.Background(), s)
	require.NoError(t, err)

	assert.Empty(t, res.Fields)
	assert.Zero(t, res.Deleted)
	assert.False(t, res.Record.IsEmpty())
	assert.Equal(t, data, res.Record.Blob())
}

func TestConvertAll_NoDocumentLoaded(t *testing.T) {
	s := viewer.NewSession(viewer.Options{})
	selection := &resetCounter{}

	res, err := New(Options{Selection: selection}).ConvertAll(context.Background(), s)
	assert.ErrorIs(t, err, flowerrors.ErrNoDocumentLoaded)
	assert.True(t, res.Record.IsEmpty())
	assert.Zero(t, selection.calls)
}

func TestConvertAll_NamesUniqueAcrossRuns(t *testing.T) {
	s, _ := newSession(t)
	p := New(Options{})

	addPlaceholders(t, s, forms.KindText)
	first, err := p.ConvertAll(context.Background(), s)
	require.NoError(t, err)

	addPlaceholders(t, s, forms.KindText)
	second, err := p.ConvertAll(context.Background(), s)
	require.NoError(t, err)

	assert.NotEqual(t, first.Fields[0].Name, second.Fields[0].Name)
	assert.Len(t, s.Widgets(), 2)
}

func TestConvertAll_NonceFailure(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText)

	p := New(Options{Nonce: func() (string, error) { return "", errors.New("entropy exhausted") }})
	_, err := p.ConvertAll(context.Background(), s)
	assert.Error(t, err)
	assert.Len(t, s.Placeholders(), 1)
}

func TestConvertAll_CancelledContext(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).ConvertAll(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.Placeholders(), 1)
}

// unloadingViewer unloads the document right after the placeholders are read
type unloadingViewer struct {
	*viewer.Session
}

func (u unloadingViewer) Placeholders() []forms.Placeholder {
	list := u.Session.Placeholders()
	u.Session.UnloadDocument()
	return list
}

func TestConvertAll_DocumentUnloadedMidRun(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText, forms.KindSignature)
	selection := &resetCounter{}

	res, err := New(Options{Selection: selection}).ConvertAll(context.Background(), unloadingViewer{s})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.True(t, res.Record.IsEmpty())
	assert.Zero(t, selection.calls)
}

// vanishingViewer deletes the first placeholder right after the list is read
type vanishingViewer struct {
	*viewer.Session
}

func (v vanishingViewer) Placeholders() []forms.Placeholder {
	list := v.Session.Placeholders()
	if len(list) > 0 {
		v.Session.DeleteAnnotations([]string{list[0].ID})
	}
	return list
}

func TestConvertAll_PlaceholderVanished(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText, forms.KindSignature)

	res, err := New(Options{}).ConvertAll(context.Background(), vanishingViewer{s})
	require.NoError(t, err)
	require.Len(t, res.Fields, 1)
	assert.Equal(t, forms.KindSignature, res.Fields[0].Kind)
	assert.Equal(t, 1, res.Deleted)
}

type failingExportViewer struct {
	*viewer.Session
}

func (f failingExportViewer) ExportAnnotations(viewer.ExportOptions) (string, error) {
	return "", errors.New("encoder broke")
}

func TestConvertAll_ExportFailure(t *testing.T) {
	s, _ := newSession(t)
	addPlaceholders(t, s, forms.KindText)

	_, err := New(Options{}).ConvertAll(context.Background(), failingExportViewer{s})
	assert.ErrorIs(t, err, flowerrors.ErrConversionExportFailure)
}
