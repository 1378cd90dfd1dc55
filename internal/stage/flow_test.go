package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

func TestFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(t)
	f := NewFlow(deps)
	assert.Equal(t, RouteStart, f.Route())

	status, err := f.LoadDocument(ctx, viewer.Source{Blob: testDocument()})
	require.NoError(t, err)
	assert.Equal(t, 2, status.Pages)
	assert.Equal(t, RoutePrepare, f.Route())

	_, err = f.SelectAssignee("bob@example.com")
	require.NoError(t, err)
	for _, kind := range []forms.Kind{forms.KindSignature, forms.KindDate} {
		ph, tr, err := f.AddField(ctx, FieldRequest{Kind: kind, View: &ViewChange{Page: 1}})
		require.NoError(t, err)
		require.NotNil(t, ph)
		assert.Empty(t, tr.Notifications)
	}
	placeholders, err := f.Placeholders()
	require.NoError(t, err)
	assert.Len(t, placeholders, 2)

	res, tr, err := f.PrepareDocument(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Fields, 2)
	assert.Equal(t, RouteSign, tr.Route)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, MsgPrepared, tr.Notifications[0].Message)

	fields, err := f.SignFields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "bob@example.com", fields[0].Assignee)

	next, err := f.NextField()
	require.NoError(t, err)
	assert.Equal(t, fields[0].Name, next.Name)
	require.NoError(t, f.FillField(fields[0].Name, "/s/ Bob"))

	tr, err = f.CompleteSigning(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteView, tr.Route)

	info, err := f.Inspect()
	require.NoError(t, err)
	assert.Equal(t, handoff.StageSigned, info.Stage)

	d, _, err := f.Download(ctx)
	require.NoError(t, err)
	assert.FileExists(t, d.PDFPath)

	st := f.Status()
	assert.Equal(t, RouteView, st.Route)
	assert.True(t, st.Handoff[handoff.StageSigned])
	require.NotNil(t, st.Document)
	assert.Equal(t, 2, st.Document.Widgets)

	tr, err = f.DoneViewing(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteStart, tr.Route)
	assert.True(t, deps.Store.Consume(handoff.StagePrepared).IsEmpty())
	assert.True(t, deps.Store.Consume(handoff.StageSigned).IsEmpty())
	assert.Nil(t, f.Status().Document)
}

func TestFlow_SignWithoutPreparedRedirects(t *testing.T) {
	f := NewFlow(testDeps(t))

	tr, err := f.StartSigning(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RouteStart, tr.Route)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, MsgNothingToSign, tr.Notifications[0].Message)

	_, err = f.SignFields()
	assert.ErrorIs(t, err, ErrWrongStage)
	assert.Len(t, f.Status().Notifications, 1)
}

func TestFlow_ViewWithoutAnythingRedirects(t *testing.T) {
	f := NewFlow(testDeps(t))

	tr, err := f.StartViewing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RouteStart, tr.Route)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, MsgNothingToView, tr.Notifications[0].Message)
}

func TestFlow_ResetClearsHandoff(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(t)
	preparedStore(t, deps)
	f := NewFlow(deps)

	tr, err := f.StartSigning(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteSign, tr.Route)

	tr, err = f.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteStart, tr.Route)
	for _, stage := range []handoff.Stage{handoff.StagePrepared, handoff.StageSigned, handoff.StageViewed} {
		assert.True(t, deps.Store.Consume(stage).IsEmpty())
	}
}

func TestFlow_WrongStage(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(testDeps(t))

	_, err := f.Inspect()
	assert.ErrorIs(t, err, ErrWrongStage)
	_, err = f.CompleteSigning(ctx)
	assert.ErrorIs(t, err, ErrWrongStage)
	_, err = f.Placeholders()
	assert.ErrorIs(t, err, ErrWrongStage)
	_, err = f.MovePlaceholder("annot-1", forms.Point{X: 10, Y: 10})
	assert.ErrorIs(t, err, ErrWrongStage)

	_, err = f.Navigate(ctx, Route("nowhere"))
	assert.Error(t, err)
}

func TestFlow_PrepareWithoutDocument(t *testing.T) {
	f := NewFlow(testDeps(t))

	_, tr, err := f.PrepareDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoutePrepare, tr.Route)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, MsgNoDocument, tr.Notifications[0].Message)
}

func TestFlow_AddFieldWithViewFromStart(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(testDeps(t))

	ph, tr, err := f.AddField(ctx, FieldRequest{Kind: forms.KindText, View: &ViewChange{Page: 2}})
	require.NoError(t, err)
	assert.Nil(t, ph)
	assert.Equal(t, RoutePrepare, tr.Route)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, MsgNoDocument, tr.Notifications[0].Message)

	_, err = f.LoadDocument(ctx, viewer.Source{Blob: testDocument()})
	require.NoError(t, err)

	ph, tr, err = f.AddField(ctx, FieldRequest{Kind: forms.KindText, View: &ViewChange{Page: 2, Zoom: 2}})
	require.NoError(t, err)
	require.NotNil(t, ph)
	assert.Empty(t, tr.Notifications)
	assert.Equal(t, 2, ph.Geometry.Page)
	assert.Equal(t, 25.0, ph.Geometry.Width)

	ph, _, err = f.AddField(ctx, FieldRequest{
		Kind:    forms.KindDate,
		Pointer: &forms.Point{X: 750, Y: 100},
		View:    &ViewChange{Zoom: 1, Scroll: &forms.Point{}, RotateClockwise: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, ph)
	assert.Equal(t, 1, ph.Geometry.Page)
	assert.Equal(t, forms.Point{X: 100, Y: 50}, ph.Geometry.Center())

	ph, tr, err = f.AddField(ctx, FieldRequest{Kind: forms.KindText, View: &ViewChange{Zoom: -1}})
	require.NoError(t, err)
	assert.Nil(t, ph)
	require.Len(t, tr.Notifications, 1)
	assert.Equal(t, LevelError, tr.Notifications[0].Level)
}

func TestFlow_MovePlaceholder(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(testDeps(t))
	_, err := f.LoadDocument(ctx, viewer.Source{Blob: testDocument()})
	require.NoError(t, err)

	ph, _, err := f.AddField(ctx, FieldRequest{Kind: forms.KindSignature})
	require.NoError(t, err)
	require.NotNil(t, ph)

	tests := []struct {
		name     string
		id       string
		pointer  forms.Point
		wantErr  error
		page     int
		center   forms.Point
		rotation int
	}{
		{name: "same page", id: ph.ID, pointer: forms.Point{X: 100, Y: 100}, page: 1, center: forms.Point{X: 100, Y: 100}},
		{name: "onto rotated page", id: ph.ID, pointer: forms.Point{X: 100, Y: 900}, page: 2, center: forms.Point{X: 90, Y: 692}, rotation: 90},
		{name: "between pages", id: ph.ID, pointer: forms.Point{X: 100, Y: 805}, wantErr: flowerrors.ErrPointerOffPage},
		{name: "unknown placeholder", id: "annot-99", pointer: forms.Point{X: 100, Y: 100}, wantErr: flowerrors.ErrFieldNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved, err := f.MovePlaceholder(tt.id, tt.pointer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, moved.Geometry.Page)
			assert.Equal(t, tt.center, moved.Geometry.Center())
			assert.Equal(t, tt.rotation, moved.Geometry.Rotation)
		})
	}

	placeholders, err := f.Placeholders()
	require.NoError(t, err)
	require.Len(t, placeholders, 1)
	assert.Equal(t, 2, placeholders[0].Geometry.Page)
}
