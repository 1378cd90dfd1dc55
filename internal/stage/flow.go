package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/a3tai/mcp-pdf-signer/internal/conversion"
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/handoff"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
)

// ErrWrongStage is returned for an action the current step does not offer
var ErrWrongStage = errors.New("action not available in the current step")

const (
	maxRedirects      = 4
	notificationsKept = 10
)

// Transition reports where the flow ended up after an action and what the
// user was told along the way
type Transition struct {
	Route         Route          `json:"route"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// ViewChange adjusts the view of the current step. Zero values leave the
// corresponding setting alone.
type ViewChange struct {
	Zoom            float64      `json:"zoom,omitempty"`
	Page            int          `json:"page,omitempty"`
	Scroll          *forms.Point `json:"scroll,omitempty"`
	RotateClockwise int          `json:"rotate_clockwise,omitempty"`
}

// DocumentStatus describes the document open in the current step
type DocumentStatus struct {
	ContentRef   string  `json:"content_ref,omitempty"`
	Pages        int     `json:"pages"`
	CurrentPage  int     `json:"current_page"`
	Zoom         float64 `json:"zoom"`
	Placeholders int     `json:"placeholders"`
	Widgets      int     `json:"widgets"`
}

// Status is a snapshot of the whole flow
type Status struct {
	Route         Route                  `json:"route"`
	Assignee      string                 `json:"assignee"`
	Handoff       map[handoff.Stage]bool `json:"handoff"`
	Document      *DocumentStatus        `json:"document,omitempty"`
	Notifications []Notification         `json:"notifications,omitempty"`
}

// Flow routes between the steps. Each step's controller is created when the
// step is entered and closed when it is left. All actions are serialized.
type Flow struct {
	mu   sync.Mutex
	deps Deps

	route   Route
	prepare *Prepare
	sign    *Sign
	view    *View
	recent  []Notification
}

// NewFlow starts at the start step
func NewFlow(deps Deps) *Flow {
	return &Flow{deps: deps.withDefaults(), route: RouteStart}
}

// Route returns the current step
func (f *Flow) Route() Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.route
}

// Navigate moves to a step, following any redirect its entry asks for
func (f *Flow) Navigate(ctx context.Context, route Route) (Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.navigateLocked(ctx, route, Transition{})
}

// Reset returns to the start, clearing every handoff slot
func (f *Flow) Reset(ctx context.Context) (Transition, error) {
	return f.Navigate(ctx, RouteStart)
}

func (f *Flow) navigateLocked(ctx context.Context, route Route, t Transition) (Transition, error) {
	for i := 0; route != "" && i < maxRedirects; i++ {
		var out Outcome
		switch route {
		case RouteStart:
			f.exitLocked()
			f.deps.Store.Reset()
			f.deps.Metrics.ObserveHandoff("all", "reset")
		case RoutePrepare:
			f.exitLocked()
			f.prepare = NewPrepare(f.deps)
		case RouteSign:
			f.exitLocked()
			f.sign = NewSign(f.deps)
			out = f.sign.Enter(ctx)
		case RouteView:
			f.exitLocked()
			f.view = NewView(f.deps)
			out = f.view.Enter(ctx)
		default:
			t.Route = f.route
			return t, fmt.Errorf("unknown route %q", route)
		}
		f.route = route
		f.deps.Logger.Debug("entered step", "route", string(route))
		t = f.recordLocked(t, out)
		route = out.Redirect
	}
	t.Route = f.route
	return t, nil
}

func (f *Flow) exitLocked() {
	if f.prepare != nil {
		f.prepare.Close()
		f.prepare = nil
	}
	if f.sign != nil {
		f.sign.Close()
		f.sign = nil
	}
	if f.view != nil {
		f.view.Close()
		f.view = nil
	}
}

func (f *Flow) recordLocked(t Transition, out Outcome) Transition {
	if out.Notification == nil {
		return t
	}
	n := *out.Notification
	t.Notifications = append(t.Notifications, n)
	f.recent = append(f.recent, n)
	if len(f.recent) > notificationsKept {
		f.recent = f.recent[len(f.recent)-notificationsKept:]
	}
	f.deps.Metrics.ObserveNotification(string(f.route), string(n.Level))
	return t
}

// applyLocked records an action's outcome and follows its redirect
func (f *Flow) applyLocked(ctx context.Context, out Outcome) (Transition, error) {
	t := f.recordLocked(Transition{}, out)
	if out.Redirect != "" {
		return f.navigateLocked(ctx, out.Redirect, t)
	}
	t.Route = f.route
	return t, nil
}

func (f *Flow) ensurePrepareLocked(ctx context.Context) error {
	if f.route == RoutePrepare && f.prepare != nil {
		return nil
	}
	_, err := f.navigateLocked(ctx, RoutePrepare, Transition{})
	return err
}

func (f *Flow) currentSessionLocked() *viewer.Session {
	switch {
	case f.prepare != nil:
		return f.prepare.Session()
	case f.sign != nil:
		return f.sign.Session()
	case f.view != nil:
		return f.view.Session()
	}
	return nil
}

// Assignees lists the roster
func (f *Flow) Assignees() []forms.Assignee {
	return f.deps.Selection.Roster().List()
}

// SelectAssignee picks who new placeholders are assigned to
func (f *Flow) SelectAssignee(email string) (forms.Assignee, error) {
	return f.deps.Selection.Select(email)
}

// LoadDocument opens a document for preparation, entering the prepare step
// if needed
func (f *Flow) LoadDocument(ctx context.Context, src viewer.Source) (*DocumentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensurePrepareLocked(ctx); err != nil {
		return nil, err
	}
	if err := f.prepare.Load(ctx, src); err != nil {
		return nil, err
	}
	return documentStatus(f.prepare.Session()), nil
}

// applyView changes zoom, page, scroll or rotation of a session
func applyView(s *viewer.Session, change ViewChange) error {
	if change.Zoom != 0 {
		if err := s.SetZoomLevel(change.Zoom); err != nil {
			return err
		}
	}
	if change.Page != 0 {
		if err := s.SetCurrentPage(change.Page); err != nil {
			return err
		}
	}
	if change.Scroll != nil {
		s.SetScroll(*change.Scroll)
	}
	for i := 0; i < change.RotateClockwise%4; i++ {
		s.RotateClockwise()
	}
	return nil
}

// AddField places a placeholder in the prepare step, entering it if needed.
// A view change on the request is applied to the prepare session first.
func (f *Flow) AddField(ctx context.Context, req FieldRequest) (*forms.Placeholder, Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensurePrepareLocked(ctx); err != nil {
		return nil, Transition{Route: f.route}, err
	}
	placeholder, out := f.prepare.AddField(req)
	t, err := f.applyLocked(ctx, out)
	return placeholder, t, err
}

// MovePlaceholder re-centers a placeholder on a window point in the prepare
// step. The placeholder may change pages.
func (f *Flow) MovePlaceholder(id string, pointer forms.Point) (forms.Placeholder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.route != RoutePrepare || f.prepare == nil {
		return forms.Placeholder{}, ErrWrongStage
	}
	return f.prepare.MovePlaceholder(id, pointer)
}

// Placeholders lists the placeholders in the prepare step
func (f *Flow) Placeholders() ([]forms.Placeholder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prepare == nil {
		return nil, ErrWrongStage
	}
	return f.prepare.Session().Placeholders(), nil
}

// PrepareDocument converts the placeholders and moves on to signing
func (f *Flow) PrepareDocument(ctx context.Context) (conversion.Result, Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensurePrepareLocked(ctx); err != nil {
		return conversion.Result{}, Transition{Route: f.route}, err
	}
	res, out := f.prepare.Prepare(ctx)
	t, err := f.applyLocked(ctx, out)
	return res, t, err
}

// StartSigning enters the sign step
func (f *Flow) StartSigning(ctx context.Context) (Transition, error) {
	return f.Navigate(ctx, RouteSign)
}

func (f *Flow) signLocked() (*Sign, error) {
	if f.route != RouteSign || f.sign == nil {
		return nil, fmt.Errorf("%w: at %s, not %s", ErrWrongStage, f.route, RouteSign)
	}
	return f.sign, nil
}

// SignFields lists the fillable widgets of the sign step
func (f *Flow) SignFields() ([]forms.FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.signLocked()
	if err != nil {
		return nil, err
	}
	return s.Fields(), nil
}

// FillField sets a widget value in the sign step
func (f *Flow) FillField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.signLocked()
	if err != nil {
		return err
	}
	return s.FillField(name, value)
}

// NextField jumps to the next widget in the sign step
func (f *Flow) NextField() (*forms.FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.signLocked()
	if err != nil {
		return nil, err
	}
	return s.NextField()
}

// PrevField jumps to the previous widget in the sign step
func (f *Flow) PrevField() (*forms.FormField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.signLocked()
	if err != nil {
		return nil, err
	}
	return s.PrevField()
}

// CompleteSigning hands the signed annotations to the view step
func (f *Flow) CompleteSigning(ctx context.Context) (Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.signLocked()
	if err != nil {
		return Transition{Route: f.route}, err
	}
	return f.applyLocked(ctx, s.Complete(ctx))
}

// StartViewing enters the view step
func (f *Flow) StartViewing(ctx context.Context) (Transition, error) {
	return f.Navigate(ctx, RouteView)
}

func (f *Flow) viewLocked() (*View, error) {
	if f.route != RouteView || f.view == nil {
		return nil, fmt.Errorf("%w: at %s, not %s", ErrWrongStage, f.route, RouteView)
	}
	return f.view, nil
}

// Inspect summarizes the document in the view step
func (f *Flow) Inspect() (Inspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.viewLocked()
	if err != nil {
		return Inspection{}, err
	}
	return v.Inspect()
}

// Download writes the viewed document to the output directory
func (f *Flow) Download(ctx context.Context) (*Download, Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.viewLocked()
	if err != nil {
		return nil, Transition{Route: f.route}, err
	}
	d, out := v.Download()
	t, err := f.applyLocked(ctx, out)
	return d, t, err
}

// DoneViewing leaves the view step for the start
func (f *Flow) DoneViewing(ctx context.Context) (Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.viewLocked()
	if err != nil {
		return Transition{Route: f.route}, err
	}
	return f.applyLocked(ctx, v.Done())
}

// Status reports the current step, handoff slots and open document
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Status{
		Route:         f.route,
		Assignee:      f.deps.Selection.Current(),
		Handoff:       f.deps.Store.Snapshot(),
		Notifications: append([]Notification(nil), f.recent...),
	}
	if s := f.currentSessionLocked(); s != nil && s.IsLoaded() {
		st.Document = documentStatus(s)
	}
	return st
}

func documentStatus(s *viewer.Session) *DocumentStatus {
	return &DocumentStatus{
		ContentRef:   s.ContentRef(),
		Pages:        s.PageCount(),
		CurrentPage:  s.CurrentPage(),
		Zoom:         s.ZoomLevel(),
		Placeholders: len(s.Placeholders()),
		Widgets:      len(s.Widgets()),
	}
}
