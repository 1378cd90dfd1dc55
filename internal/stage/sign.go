package stage

import (
	"context"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// Sign lets the signer fill the prepared fields and complete signing
type Sign struct {
	deps    Deps
	session *viewer.Session
	record  handoff.Record
	cursor  int

	export func(viewer.ExportOptions) (string, error)
}

// NewSign opens a fresh viewer session for the sign step
func NewSign(deps Deps) *Sign {
	deps = deps.withDefaults()
	s := &Sign{deps: deps, session: deps.newSession()}
	s.export = s.session.ExportAnnotations
	return s
}

// Session exposes the viewer for view-state changes
func (s *Sign) Session() *viewer.Session {
	return s.session
}

// Enter consumes the prepared record. With nothing prepared it loads nothing
// and sends the user back to the start.
func (s *Sign) Enter(ctx context.Context) Outcome {
	rec := s.deps.Store.Consume(handoff.StagePrepared)
	s.deps.Metrics.ObserveHandoff(string(handoff.StagePrepared), "consume")
	if rec.IsEmpty() {
		s.deps.Logger.Info("sign entered without a prepared document",
			"error", flowerrors.ErrEmptyHandoffConsumed)
		return failure(MsgNothingToSign, RouteStart)
	}

	if err := s.session.LoadDocument(ctx, viewer.Source{ContentRef: rec.ContentRef(), Blob: rec.Blob()}); err != nil {
		s.deps.Logger.Error("failed to load prepared document", "doc_id", rec.DocID(), "error", err)
		return failure(MsgLoadFailed, RouteStart)
	}
	if xfdf := rec.Annotations(); xfdf != "" {
		if err := s.session.ImportAnnotations(xfdf); err != nil {
			s.deps.Logger.Error("error importing form fields", "doc_id", rec.DocID(), "error", err)
		}
	}

	widgets := s.session.Widgets()
	names := make([]string, len(widgets))
	for i, w := range widgets {
		names[i] = w.Name
	}
	s.session.DrawAnnotations(names, forms.SigningStyles)

	s.record = rec
	s.cursor = 0
	s.deps.Logger.Info("signing started", "doc_id", rec.DocID(), "fields", len(widgets))
	return Outcome{}
}

// Fields returns the fillable widgets in navigation order
func (s *Sign) Fields() []forms.FormField {
	return s.session.Widgets()
}

// NextField jumps to the widget under the cursor and advances the cursor if
// there is a widget after it. It returns nil when there is nothing to visit.
func (s *Sign) NextField() (*forms.FormField, error) {
	return s.step(1)
}

// PrevField jumps to the widget under the cursor and moves the cursor back if
// there is a widget before it
func (s *Sign) PrevField() (*forms.FormField, error) {
	return s.step(-1)
}

func (s *Sign) step(delta int) (*forms.FormField, error) {
	if !s.session.IsLoaded() {
		return nil, flowerrors.ErrNoDocumentLoaded
	}
	widgets := s.session.Widgets()
	if s.cursor < 0 || s.cursor >= len(widgets) {
		return nil, nil
	}

	current := widgets[s.cursor]
	if err := s.session.JumpToWidget(current.Name); err != nil {
		return nil, err
	}
	if next := s.cursor + delta; next >= 0 && next < len(widgets) {
		s.cursor = next
	}
	return &current, nil
}

// Cursor returns the index of the widget the next jump lands on
func (s *Sign) Cursor() int {
	return s.cursor
}

// FillField sets the value of a widget
func (s *Sign) FillField(name, value string) error {
	if !s.session.IsLoaded() {
		return flowerrors.ErrNoDocumentLoaded
	}
	if err := s.session.SetFieldValue(name, value); err != nil {
		return err
	}
	s.deps.Logger.Debug("field filled", "field", name)
	return nil
}

// Complete exports the signer's annotations and hands them to the view step.
// On export failure the step stays as it was and nothing is produced.
func (s *Sign) Complete(ctx context.Context) Outcome {
	if s.record.IsEmpty() || !s.session.IsLoaded() {
		return failure(MsgNothingToSign, RouteStart)
	}
	if err := ctx.Err(); err != nil {
		return failure(MsgSignFailed, "")
	}

	xfdf, err := s.export(viewer.ExportOptions{Widgets: true})
	if err != nil {
		s.deps.Logger.Error("failed to export signed annotations",
			"error", flowerrors.Wrap(flowerrors.ErrorTypeConversionExportFailure, "sign completion", err))
		return failure(MsgSignFailed, "")
	}

	signed := s.record.Next(handoff.StageSigned, handoff.DocIDSigned, xfdf)
	s.deps.Store.Produce(signed)
	s.deps.Metrics.ObserveHandoff(string(handoff.StageSigned), "produce")
	s.deps.Logger.Info("document signed", "doc_id", signed.DocID(), "bytes", signed.Size())

	return success(MsgSigned, RouteView)
}

// Close drops the viewer session
func (s *Sign) Close() {
	s.session.UnloadDocument()
}
