package stage

import (
	"context"
	"errors"

	"github.com/a3tai/mcp-pdf-signer/internal/conversion"
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// FieldRequest asks for a new placeholder
type FieldRequest struct {
	Kind  forms.Kind
	Value string
	Flags map[string]bool

	// Pointer is a drop location in window space. Nil centers the field on
	// the current page.
	Pointer *forms.Point

	// View is applied before the drop is resolved
	View *ViewChange
}

// Prepare lets the preparer load a document, place fields and convert them
type Prepare struct {
	deps     Deps
	session  *viewer.Session
	pipeline *conversion.Pipeline
}

// NewPrepare opens a fresh viewer session for the prepare step
func NewPrepare(deps Deps) *Prepare {
	deps = deps.withDefaults()
	return &Prepare{
		deps:    deps,
		session: deps.newSession(),
		pipeline: conversion.New(conversion.Options{
			Selection: deps.Selection,
			Style:     forms.PreparationStyles,
			Logger:    deps.Logger,
			Metrics:   deps.Metrics,
		}),
	}
}

// Session exposes the viewer for view-state changes (zoom, scroll, page)
func (p *Prepare) Session() *viewer.Session {
	return p.session
}

// Load opens a document for preparation
func (p *Prepare) Load(ctx context.Context, src viewer.Source) error {
	if err := p.session.LoadDocument(ctx, src); err != nil {
		p.deps.Logger.Warn("failed to load document", "content_ref", src.ContentRef, "error", err)
		return err
	}
	return nil
}

// AddField places a placeholder tagged with the selected assignee. A pointer
// that is not over a page is a no-op and returns nil with an empty outcome.
func (p *Prepare) AddField(req FieldRequest) (*forms.Placeholder, Outcome) {
	if !p.session.IsLoaded() {
		return nil, failure(MsgNoDocument, "")
	}
	if req.View != nil {
		if err := applyView(p.session, *req.View); err != nil {
			return nil, p.fieldFailure(err)
		}
	}

	var (
		page    int
		pointer *forms.Point
	)
	if req.Pointer != nil {
		selected, ok := p.session.SelectedPage(*req.Pointer)
		if !ok {
			p.deps.Logger.Debug("drop outside any page", "x", req.Pointer.X, "y", req.Pointer.Y)
			return nil, Outcome{}
		}
		pagePoint, err := p.session.WindowToPage(*req.Pointer, selected)
		if err != nil {
			return nil, p.fieldFailure(err)
		}
		page = selected
		pointer = &pagePoint
	} else {
		page = p.session.CurrentPage()
	}

	g, err := p.placement(page, pointer)
	if err != nil {
		return nil, p.fieldFailure(err)
	}

	assignee := p.deps.Selection.Current()
	placeholder, err := p.session.AddPlaceholder(forms.Placeholder{
		Geometry: g,
		Kind:     req.Kind,
		Assignee: assignee,
		Label:    forms.PlaceholderLabel(assignee, req.Kind),
		Value:    req.Value,
		Flags:    req.Flags,
	})
	if err != nil {
		return nil, p.fieldFailure(err)
	}

	p.deps.Logger.Debug("placeholder added",
		"placeholder_id", placeholder.ID,
		"kind", string(placeholder.Kind),
		"page", page,
		"rotation", g.Rotation)
	return &placeholder, Outcome{}
}

// MovePlaceholder re-centers a placeholder on a window point, resizing it for
// the rotation of the page under the point
func (p *Prepare) MovePlaceholder(id string, pointer forms.Point) (forms.Placeholder, error) {
	if !p.session.IsLoaded() {
		return forms.Placeholder{}, flowerrors.ErrNoDocumentLoaded
	}
	page, ok := p.session.SelectedPage(pointer)
	if !ok {
		return forms.Placeholder{}, flowerrors.Newf(flowerrors.ErrorTypePointerOffPage, "pointer (%g, %g) is not over a page", pointer.X, pointer.Y)
	}
	pagePoint, err := p.session.WindowToPage(pointer, page)
	if err != nil {
		return forms.Placeholder{}, err
	}
	g, err := p.placement(page, &pagePoint)
	if err != nil {
		return forms.Placeholder{}, err
	}
	if err := p.session.MovePlaceholder(id, g); err != nil {
		return forms.Placeholder{}, err
	}

	for _, ph := range p.session.Placeholders() {
		if ph.ID == id {
			p.deps.Logger.Debug("placeholder moved", "placeholder_id", id, "page", page)
			return ph, nil
		}
	}
	return forms.Placeholder{}, flowerrors.Newf(flowerrors.ErrorTypeFieldNotFound, "placeholder %q not found", id)
}

// placement sizes and centers a field on page. A nil pointer centers it on
// the page.
func (p *Prepare) placement(page int, pointer *forms.Point) (forms.Geometry, error) {
	info, err := p.session.PageInfo(page)
	if err != nil {
		return forms.Geometry{}, err
	}
	quadrant, err := p.session.CompleteRotation(page)
	if err != nil {
		return forms.Geometry{}, err
	}
	g, err := geometry.ComputePlacement(pointer, info, quadrant*90, p.session.ZoomLevel(), p.deps.FieldWidth, p.deps.FieldHeight)
	if err != nil {
		return forms.Geometry{}, err
	}
	g.Page = page
	return g, nil
}

func (p *Prepare) fieldFailure(err error) Outcome {
	p.deps.Logger.Warn("failed to add field", "error", err)
	if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
		return failure(MsgNoDocument, "")
	}
	return failure(flowerrors.TypeOf(err).UserMessage(), "")
}

// Prepare converts every placeholder and hands the result to the sign step
func (p *Prepare) Prepare(ctx context.Context) (conversion.Result, Outcome) {
	res, err := p.pipeline.ConvertAll(ctx, p.session)
	if err != nil {
		if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
			return res, failure(MsgNoDocument, "")
		}
		p.deps.Logger.Error("conversion failed", "error", err)
		return res, failure(MsgPrepareFailed, "")
	}
	if res.Cancelled {
		return res, Outcome{}
	}

	p.deps.Store.Produce(res.Record)
	p.deps.Metrics.ObserveHandoff(string(handoff.StagePrepared), "produce")

	// A new prepared document supersedes anything signed earlier
	p.deps.Store.ResetStage(handoff.StageSigned)
	p.deps.Metrics.ObserveHandoff(string(handoff.StageSigned), "reset")

	return res, success(MsgPrepared, RouteSign)
}

// Close drops the viewer session
func (p *Prepare) Close() {
	p.session.UnloadDocument()
}
