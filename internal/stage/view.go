package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// Inspection summarizes the document shown in the view step
type Inspection struct {
	DocID    string            `json:"doc_id"`
	Stage    handoff.Stage     `json:"stage"`
	Pages    int               `json:"pages"`
	Version  string            `json:"version,omitempty"`
	Metadata pdf.Metadata      `json:"metadata"`
	Text     []pdf.PageText    `json:"text"`
	Fields   []forms.FormField `json:"fields"`
}

// Download lists the files written by the view step
type Download struct {
	PDFPath  string `json:"pdf_path"`
	XFDFPath string `json:"xfdf_path"`
}

// View shows the final artifact. It never produces a record.
type View struct {
	deps    Deps
	session *viewer.Session
	record  handoff.Record
}

// NewView opens a fresh viewer session for the view step
func NewView(deps Deps) *View {
	deps = deps.withDefaults()
	return &View{deps: deps, session: deps.newSession()}
}

// Session exposes the viewer for view-state changes
func (v *View) Session() *viewer.Session {
	return v.session
}

// Enter consumes the signed record, or the prepared one when signing was
// skipped
func (v *View) Enter(ctx context.Context) Outcome {
	rec := v.deps.Store.ConsumeFirst(handoff.StageSigned, handoff.StagePrepared)
	if rec.IsEmpty() {
		v.deps.Metrics.ObserveHandoff(string(handoff.StageSigned), "consume")
		v.deps.Logger.Info("view entered without a document",
			"error", flowerrors.ErrEmptyHandoffConsumed)
		return failure(MsgNothingToView, RouteStart)
	}

	if err := v.session.LoadDocument(ctx, viewer.Source{ContentRef: rec.ContentRef(), Blob: rec.Blob()}); err != nil {
		v.deps.Logger.Error("failed to load document for viewing", "doc_id", rec.DocID(), "error", err)
		return failure(MsgLoadFailed, RouteStart)
	}
	if xfdf := rec.Annotations(); xfdf != "" {
		if err := v.session.ImportAnnotations(xfdf); err != nil {
			v.deps.Logger.Error("error importing annotations", "doc_id", rec.DocID(), "error", err)
		}
	}

	v.deps.Metrics.ObserveHandoff(string(rec.Stage()), "consume")
	v.record = rec
	v.deps.Logger.Info("viewing document", "doc_id", rec.DocID(), "stage", string(rec.Stage()))
	return Outcome{}
}

// Inspect reports page count, extracted text and field values
func (v *View) Inspect() (Inspection, error) {
	doc, err := v.session.Document()
	if err != nil {
		return Inspection{}, err
	}
	data := doc.FileData()
	text, err := pdf.ExtractText(data)
	if err != nil {
		v.deps.Logger.Warn("text extraction failed", "doc_id", v.record.DocID(), "error", err)
		text = nil
	}
	meta, err := pdf.ReadMetadata(data)
	if err != nil {
		v.deps.Logger.Warn("metadata extraction failed", "doc_id", v.record.DocID(), "error", err)
	}
	return Inspection{
		DocID:    v.record.DocID(),
		Stage:    v.record.Stage(),
		Pages:    doc.PageCount(),
		Version:  doc.Version(),
		Metadata: meta,
		Text:     text,
		Fields:   v.session.Fields(),
	}, nil
}

// Download writes the document and its annotations to the output directory
func (v *View) Download() (*Download, Outcome) {
	if !v.session.IsLoaded() {
		return nil, failure(MsgNothingToView, RouteStart)
	}
	if v.deps.OutputDirectory == "" {
		return nil, failure(MsgDownloadDisabled, "")
	}

	data, err := v.session.FileData()
	if err != nil {
		return nil, v.downloadFailure(err)
	}
	xfdf, err := v.session.ExportAnnotations(viewer.ExportOptions{Widgets: true})
	if err != nil {
		return nil, v.downloadFailure(err)
	}

	if err := os.MkdirAll(v.deps.OutputDirectory, 0o755); err != nil {
		return nil, v.downloadFailure(err)
	}
	base := filepath.Base(v.record.DocID())
	if base == "." || base == string(filepath.Separator) {
		base = handoff.DocIDSigned
	}
	out := &Download{
		PDFPath:  filepath.Join(v.deps.OutputDirectory, base+".pdf"),
		XFDFPath: filepath.Join(v.deps.OutputDirectory, base+".xfdf"),
	}
	if err := os.WriteFile(out.PDFPath, data, 0o644); err != nil {
		return nil, v.downloadFailure(err)
	}
	if err := os.WriteFile(out.XFDFPath, []byte(xfdf), 0o644); err != nil {
		return nil, v.downloadFailure(err)
	}

	v.deps.Logger.Info("document downloaded", "pdf", out.PDFPath, "xfdf", out.XFDFPath)
	return out, success(MsgDownloaded, "")
}

func (v *View) downloadFailure(err error) Outcome {
	v.deps.Logger.Error("download failed", "error", fmt.Errorf("doc %s: %w", v.record.DocID(), err))
	return failure(MsgDownloadFailed, "")
}

// Done finishes viewing and returns to the start
func (v *View) Done() Outcome {
	if !v.record.IsEmpty() {
		v.deps.Logger.Info("document viewed", "doc_id", v.record.DocID(), "state", string(handoff.StageViewed))
	}
	return Outcome{Redirect: RouteStart}
}

// Close drops the viewer session
func (v *View) Close() {
	v.session.UnloadDocument()
}
