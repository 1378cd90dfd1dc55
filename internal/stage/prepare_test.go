package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

func TestPrepare_AddFieldWithoutDocument(t *testing.T) {
	p := NewPrepare(testDeps(t))

	ph, out := p.AddField(FieldRequest{Kind: forms.KindSignature})
	assert.Nil(t, ph)
	require.NotNil(t, out.Notification)
	assert.Equal(t, LevelError, out.Notification.Level)
	assert.Equal(t, MsgNoDocument, out.Notification.Message)
	assert.Equal(t, ErrorDuration, out.Notification.Duration)
	assert.Empty(t, out.Redirect)
}

func TestPrepare_AddFieldAtPointer(t *testing.T) {
	p := NewPrepare(testDeps(t))
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: testDocument()}))

	ph, out := p.AddField(FieldRequest{Kind: forms.KindSignature, Pointer: &forms.Point{X: 100, Y: 100}})
	require.NotNil(t, ph)
	assert.Nil(t, out.Notification)

	assert.Equal(t, forms.Geometry{Page: 1, X: -25, Y: 75, Width: 250, Height: 50, Rotation: 0}, ph.Geometry)
	assert.Equal(t, forms.Point{X: 100, Y: 100}, ph.Geometry.Center())
	assert.Equal(t, "alice@example.com", ph.Assignee)
	assert.Equal(t, "alice@example.com_SIGNATURE_", ph.Label)
	assert.Equal(t, "preparer@example.com", ph.Author)
}

func TestPrepare_AddFieldCenteredOnRotatedPage(t *testing.T) {
	deps := testDeps(t)
	p := NewPrepare(deps)
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: testDocument()}))
	require.NoError(t, p.Session().SetCurrentPage(2))
	require.NoError(t, p.Session().SetZoomLevel(2))
	_, err := deps.Selection.Select("bob@example.com")
	require.NoError(t, err)

	ph, _ := p.AddField(FieldRequest{Kind: forms.KindText, Value: "Bob"})
	require.NotNil(t, ph)

	assert.Equal(t, 2, ph.Geometry.Page)
	assert.Equal(t, 90, ph.Geometry.Rotation)
	assert.Equal(t, 25.0, ph.Geometry.Width)
	assert.Equal(t, 125.0, ph.Geometry.Height)
	assert.Equal(t, forms.Point{X: 306, Y: 396}, ph.Geometry.Center())
	assert.Equal(t, "bob@example.com_TEXT_", ph.Label)
	assert.Equal(t, "Bob", ph.Value)
}

func TestPrepare_AddFieldDropOnRotatedView(t *testing.T) {
	p := NewPrepare(testDeps(t))
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: pdftest.Build(pdftest.Page{Width: 600, Height: 800})}))
	p.Session().RotateClockwise()

	ph, out := p.AddField(FieldRequest{Kind: forms.KindSignature, Pointer: &forms.Point{X: 750, Y: 100}})
	require.NotNil(t, ph)
	assert.Nil(t, out.Notification)

	center := ph.Geometry.Center()
	assert.Equal(t, 1, ph.Geometry.Page)
	assert.Equal(t, 90, ph.Geometry.Rotation)
	assert.Equal(t, forms.Point{X: 100, Y: 50}, center)
	assert.True(t, center.X >= 0 && center.X <= 600)
	assert.True(t, center.Y >= 0 && center.Y <= 800)
}

func TestPrepare_DropOffPageIsNoop(t *testing.T) {
	p := NewPrepare(testDeps(t))
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: testDocument()}))

	ph, out := p.AddField(FieldRequest{Kind: forms.KindText, Pointer: &forms.Point{X: 5000, Y: 10}})
	assert.Nil(t, ph)
	assert.Nil(t, out.Notification)
	assert.Empty(t, p.Session().Placeholders())
}

func TestPrepare_Prepare(t *testing.T) {
	deps := testDeps(t)
	data := testDocument()
	stale := handoff.NewRecord(handoff.Params{Stage: handoff.StageSigned, DocID: handoff.DocIDSigned, Blob: []byte("old")})
	deps.Store.Produce(stale)

	p := NewPrepare(deps)
	require.NoError(t, p.Load(context.Background(), viewer.Source{Blob: data}))
	_, err := deps.Selection.Select("bob@example.com")
	require.NoError(t, err)

	p.AddField(FieldRequest{Kind: forms.KindText})
	p.AddField(FieldRequest{Kind: forms.Kind("STAMP")})

	res, out := p.Prepare(context.Background())
	require.NotNil(t, out.Notification)
	assert.Equal(t, LevelSuccess, out.Notification.Level)
	assert.Equal(t, MsgPrepared, out.Notification.Message)
	assert.Equal(t, SuccessDuration, out.Notification.Duration)
	assert.Equal(t, RouteSign, out.Redirect)

	assert.Len(t, res.Fields, 1)
	assert.Len(t, res.Dropped, 1)

	rec := deps.Store.Consume(handoff.StagePrepared)
	require.False(t, rec.IsEmpty())
	assert.Equal(t, data, rec.Blob())
	assert.True(t, deps.Store.Consume(handoff.StageSigned).IsEmpty())
	assert.Equal(t, "alice@example.com", deps.Selection.Current())
}

func TestPrepare_PrepareWithoutDocument(t *testing.T) {
	deps := testDeps(t)
	p := NewPrepare(deps)

	_, out := p.Prepare(context.Background())
	require.NotNil(t, out.Notification)
	assert.Equal(t, MsgNoDocument, out.Notification.Message)
	assert.Empty(t, out.Redirect)
	assert.True(t, deps.Store.Consume(handoff.StagePrepared).IsEmpty())
}
