// Package conversion turns the placeholders on a document into interactive
// form fields and snapshots the result for the sign stage.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/logging"
	"github.com/a3tai/mcp-pdf-signer/internal/observability/metrics"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// Viewer is the part of the document viewer the pipeline drives
type Viewer interface {
	IsLoaded() bool
	ContentRef() string
	Placeholders() []forms.Placeholder
	HasAnnotation(id string) bool
	DeleteAnnotations(ids []string) int
	AddWidgets(fields []forms.FormField) error
	AddFields(fields []forms.FormField) error
	DrawAnnotations(names []string, style forms.StyleFunc) int
	FileData() ([]byte, error)
	ExportAnnotations(opts viewer.ExportOptions) (string, error)
}

// SelectionResetter clears the preparer's assignee choice
type SelectionResetter interface {
	Reset()
}

// Options configures a Pipeline
type Options struct {
	Selection SelectionResetter
	Style     forms.StyleFunc
	Logger    *slog.Logger
	Metrics   *metrics.FlowMetrics

	// Concurrency caps in-flight conversions; zero means no limit
	Concurrency int

	// Nonce returns the per-run disambiguator used in field names
	Nonce func() (string, error)
}

// Pipeline converts placeholders into form fields
type Pipeline struct {
	selection   SelectionResetter
	style       forms.StyleFunc
	logger      *slog.Logger
	metrics     *metrics.FlowMetrics
	concurrency int
	nonce       func() (string, error)
}

// Result describes one conversion run
type Result struct {
	Fields  []forms.FormField
	Dropped []string
	Deleted int
	Record  handoff.Record

	// Cancelled is set when the document went away mid-run. Nothing was
	// produced and it is not an error.
	Cancelled bool
}

// outcome is the per-placeholder result of the fan-out
type outcome struct {
	placeholderID string
	field         *forms.FormField
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	p := &Pipeline{
		selection:   opts.Selection,
		style:       opts.Style,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		nonce:       opts.Nonce,
	}
	if p.style == nil {
		p.style = forms.PreparationStyles
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.nonce == nil {
		p.nonce = NewNonce
	}
	return p
}

// NewNonce returns a time-ordered UUID string
func NewNonce() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate field name nonce: %w", err)
	}
	return id.String(), nil
}

// FieldName derives a field name from the placeholder label, the run nonce
// and the placeholder's index in the batch
func FieldName(label, nonce string, index int) string {
	return fmt.Sprintf("%s%s-%d", label, nonce, index)
}

// ConvertAll converts every placeholder on the document. Unknown kinds are
// deleted without a replacement. All placeholders are deleted in one batch
// before the new fields are drawn in one batch.
func (p *Pipeline) ConvertAll(ctx context.Context, v Viewer) (Result, error) {
	start := time.Now()

	if !v.IsLoaded() {
		err := flowerrors.New(flowerrors.ErrorTypeNoDocumentLoaded, "no document to prepare").WithStage("prepare")
		p.metrics.ObserveConversion(time.Since(start), nil, 0, err)
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	nonce, err := p.nonce()
	if err != nil {
		p.metrics.ObserveConversion(time.Since(start), nil, 0, err)
		return Result{}, err
	}

	placeholders := v.Placeholders()
	outcomes := make([]outcome, len(placeholders))

	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, ph := range placeholders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.convertOne(ph, nonce, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.metrics.ObserveConversion(time.Since(start), nil, 0, err)
		return Result{}, err
	}

	if !v.IsLoaded() {
		return p.cancelled(start, "document unloaded during conversion"), nil
	}

	var (
		toDelete []string
		fields   []forms.FormField
		dropped  []string
	)
	for _, o := range outcomes {
		if !v.HasAnnotation(o.placeholderID) {
			p.logger.Debug("placeholder vanished during conversion", "placeholder_id", o.placeholderID)
			continue
		}
		toDelete = append(toDelete, o.placeholderID)
		if o.field == nil {
			dropped = append(dropped, o.placeholderID)
			continue
		}
		fields = append(fields, *o.field)
	}

	deleted := v.DeleteAnnotations(toDelete)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	if err := v.AddWidgets(fields); err != nil {
		if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
			return p.cancelled(start, "document unloaded before fields were added"), nil
		}
		p.metrics.ObserveConversion(time.Since(start), nil, len(dropped), err)
		return Result{}, err
	}
	if err := v.AddFields(fields); err != nil {
		if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
			return p.cancelled(start, "document unloaded before fields were registered"), nil
		}
		p.metrics.ObserveConversion(time.Since(start), nil, len(dropped), err)
		return Result{}, err
	}
	v.DrawAnnotations(names, p.style)

	record, err := p.snapshot(v)
	if err != nil {
		if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
			return p.cancelled(start, "document unloaded before snapshot"), nil
		}
		p.metrics.ObserveConversion(time.Since(start), nil, len(dropped), err)
		return Result{}, err
	}

	if p.selection != nil {
		p.selection.Reset()
	}

	created := make(map[string]int)
	for _, f := range fields {
		created[string(f.Kind)]++
	}
	p.metrics.ObserveConversion(time.Since(start), created, len(dropped), nil)
	p.logger.Info("document prepared",
		"fields", len(fields),
		"dropped", len(dropped),
		"deleted", deleted,
		"bytes", record.Size(),
		"duration", time.Since(start))

	return Result{
		Fields:  fields,
		Dropped: dropped,
		Deleted: deleted,
		Record:  record,
	}, nil
}

func (p *Pipeline) convertOne(ph forms.Placeholder, nonce string, index int) outcome {
	spec, err := forms.Resolve(ph.Kind)
	if err != nil {
		p.logger.Warn("dropping placeholder",
			"placeholder_id", ph.ID,
			"kind", string(ph.Kind),
			"error", err)
		return outcome{placeholderID: ph.ID}
	}
	field := spec.Build(FieldName(ph.Label, nonce, index), ph)
	return outcome{placeholderID: ph.ID, field: &field}
}

func (p *Pipeline) snapshot(v Viewer) (handoff.Record, error) {
	data, err := v.FileData()
	if err != nil {
		return handoff.Record{}, err
	}
	xfdf, err := v.ExportAnnotations(viewer.ExportOptions{Widgets: true})
	if err != nil {
		if errors.Is(err, flowerrors.ErrNoDocumentLoaded) {
			return handoff.Record{}, err
		}
		return handoff.Record{}, flowerrors.Wrap(flowerrors.ErrorTypeConversionExportFailure, "failed to export prepared fields", err)
	}
	return handoff.NewRecord(handoff.Params{
		Stage:       handoff.StagePrepared,
		DocID:       handoff.DocIDPrepared,
		ContentRef:  v.ContentRef(),
		Blob:        data,
		Annotations: xfdf,
	}), nil
}

func (p *Pipeline) cancelled(start time.Time, reason string) Result {
	p.logger.Info("conversion cancelled", "reason", reason, "duration", time.Since(start))
	return Result{Cancelled: true}
}
