// Package stage holds the controllers for the prepare, sign and view steps
// and the flow that routes between them.
package stage

import (
	"log/slog"
	"time"

	"github.com/a3tai/mcp-pdf-signer/internal/assign"
	"github.com/a3tai/mcp-pdf-signer/internal/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/logging"
	"github.com/a3tai/mcp-pdf-signer/internal/observability/metrics"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// Route names a step of the flow
type Route string

const (
	RouteStart   Route = "start"
	RoutePrepare Route = "prepare"
	RouteSign    Route = "sign"
	RouteView    Route = "view"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// How long notifications stay on screen
const (
	SuccessDuration = 2 * time.Second
	ErrorDuration   = 3 * time.Second
)

// User-facing messages
const (
	MsgNoDocument       = "Please upload a document first"
	MsgPrepared         = "Document prepared successfully! Redirecting to sign..."
	MsgPrepareFailed    = "Error preparing document. Please try again."
	MsgNothingToSign    = "No document to sign. Please prepare a document first."
	MsgSigned           = "Document signed successfully! Redirecting to view..."
	MsgSignFailed       = "Error signing document. Please try again."
	MsgNothingToView    = "No document to view. Please prepare or sign a document first."
	MsgLoadFailed       = "Unable to open the document."
	MsgDownloaded       = "Document downloaded."
	MsgDownloadFailed   = "Error downloading document. Please try again."
	MsgDownloadDisabled = "Downloads are not configured."
)

// Notification is a transient, time-bounded message for the user
type Notification struct {
	Level    Level         `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Outcome is what a controller action asks of the flow: an optional
// notification and an optional route to move to
type Outcome struct {
	Notification *Notification
	Redirect     Route
}

func success(message string, redirect Route) Outcome {
	return Outcome{
		Notification: &Notification{Level: LevelSuccess, Message: message, Duration: SuccessDuration},
		Redirect:     redirect,
	}
}

func failure(message string, redirect Route) Outcome {
	return Outcome{
		Notification: &Notification{Level: LevelError, Message: message, Duration: ErrorDuration},
		Redirect:     redirect,
	}
}

// Deps are the collaborators shared by every controller
type Deps struct {
	Store     *handoff.Store
	Selection *assign.Selection
	Logger    *slog.Logger
	Metrics   *metrics.FlowMetrics

	// Viewer configures the session each controller opens on entry
	Viewer viewer.Options

	FieldWidth      float64
	FieldHeight     float64
	OutputDirectory string
}

func (d Deps) withDefaults() Deps {
	if d.Store == nil {
		d.Store = handoff.NewStore()
	}
	if d.Selection == nil {
		roster, _ := assign.NewRoster(nil)
		d.Selection = assign.NewSelection(roster)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Viewer.Logger == nil {
		d.Viewer.Logger = d.Logger
	}
	if d.FieldWidth <= 0 {
		d.FieldWidth = geometry.DefaultFieldWidth
	}
	if d.FieldHeight <= 0 {
		d.FieldHeight = geometry.DefaultFieldHeight
	}
	return d
}

func (d Deps) newSession() *viewer.Session {
	return viewer.NewSession(d.Viewer)
}
