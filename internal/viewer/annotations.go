package viewer

import (
	"fmt"
	"sort"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// AddPlaceholder adds a placeholder annotation and selects it. An empty ID is
// assigned, an empty author defaults to the current user.
func (s *Session) AddPlaceholder(p forms.Placeholder) (forms.Placeholder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return forms.Placeholder{}, flowerrors.ErrNoDocumentLoaded
	}
	if _, err := s.doc.PageInfo(p.Geometry.Page); err != nil {
		return forms.Placeholder{}, err
	}

	if p.ID == "" {
		s.nextID++
		p.ID = fmt.Sprintf("annot-%d", s.nextID)
	}
	if p.Author == "" {
		p.Author = s.currentUser
	}
	p.Flags = copyFlags(p.Flags)

	for i := range s.placeholders {
		if s.placeholders[i].ID == p.ID {
			s.placeholders[i] = p
			s.selected = p.ID
			return p, nil
		}
	}
	s.placeholders = append(s.placeholders, p)
	s.selected = p.ID
	return p, nil
}

// MovePlaceholder repositions a placeholder on its page
func (s *Session) MovePlaceholder(id string, g forms.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}
	if _, err := s.doc.PageInfo(g.Page); err != nil {
		return err
	}
	for i := range s.placeholders {
		if s.placeholders[i].ID == id {
			s.placeholders[i].Geometry = g
			return nil
		}
	}
	return flowerrors.Newf(flowerrors.ErrorTypeFieldNotFound, "placeholder %q not found", id)
}

// Placeholders returns a snapshot of the placeholder annotations in insertion
// order
func (s *Session) Placeholders() []forms.Placeholder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forms.Placeholder, len(s.placeholders))
	for i, p := range s.placeholders {
		p.Flags = copyFlags(p.Flags)
		out[i] = p
	}
	return out
}

// HasAnnotation reports whether a placeholder or widget with the id exists
func (s *Session) HasAnnotation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.placeholders {
		if p.ID == id {
			return true
		}
	}
	for _, name := range s.widgets {
		if name == id {
			return true
		}
	}
	return false
}

// DeleteAnnotations removes the placeholders and widgets with the given ids
// in one batch. Ids that do not exist are ignored. It returns how many
// annotations were removed.
func (s *Session) DeleteAnnotations(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := 0
	kept := s.placeholders[:0]
	for _, p := range s.placeholders {
		if _, ok := drop[p.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.placeholders = kept

	widgets := s.widgets[:0]
	for _, name := range s.widgets {
		if _, ok := drop[name]; ok {
			removed++
			delete(s.drawn, name)
			continue
		}
		widgets = append(widgets, name)
	}
	s.widgets = widgets

	if _, ok := drop[s.selected]; ok {
		s.selected = ""
	}
	return removed
}

// AddWidgets adds widget annotations for the fields. A widget is keyed by its
// field name; re-adding a name replaces its geometry.
func (s *Session) AddWidgets(fields []forms.FormField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}
	for _, f := range fields {
		if _, err := s.doc.PageInfo(f.Geometry.Page); err != nil {
			return err
		}
	}
	for _, f := range fields {
		s.upsertFieldLocked(f, false)
		if !containsString(s.widgets, f.Name) {
			s.widgets = append(s.widgets, f.Name)
		}
	}
	return nil
}

// AddFields registers fields with the field manager. Values already held for
// a name are overwritten.
func (s *Session) AddFields(fields []forms.FormField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}
	for _, f := range fields {
		s.upsertFieldLocked(f, true)
	}
	return nil
}

func (s *Session) upsertFieldLocked(f forms.FormField, withValue bool) {
	existing, ok := s.fields[f.Name]
	if ok && !withValue {
		existing.Geometry = f.Geometry
		existing.Widget = f.Widget
		existing.Appearance = copyAppearance(f.Appearance)
		return
	}
	cp := copyField(f)
	s.fields[f.Name] = &cp
}

// DrawAnnotations renders the named widgets with the style returned for each.
// Names without a widget are skipped.
func (s *Session) DrawAnnotations(names []string, style forms.StyleFunc) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	drawn := 0
	for _, name := range names {
		f, ok := s.fields[name]
		if !ok || !containsString(s.widgets, name) {
			continue
		}
		st := forms.Style{}
		if style != nil {
			st = style(*f)
		}
		s.drawn[name] = st
		drawn++
	}
	return drawn
}

// DrawnStyle returns the style a widget was last drawn with
func (s *Session) DrawnStyle(name string) (forms.Style, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.drawn[name]
	return st, ok
}

// Widgets returns the widget fields in insertion order with their current
// values
func (s *Session) Widgets() []forms.FormField {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forms.FormField, 0, len(s.widgets))
	for _, name := range s.widgets {
		if f, ok := s.fields[name]; ok {
			out = append(out, copyField(*f))
		}
	}
	return out
}

// Fields returns every registered field sorted by name
func (s *Session) Fields() []forms.FormField {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forms.FormField, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, copyField(*f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Field looks up a field by name
func (s *Session) Field(name string) (forms.FormField, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[name]
	if !ok {
		return forms.FormField{}, false
	}
	return copyField(*f), true
}

// SetFieldValue sets the value of a field
func (s *Session) SetFieldValue(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}
	f, ok := s.fields[name]
	if !ok {
		return flowerrors.Newf(flowerrors.ErrorTypeFieldNotFound, "field %q not found", name)
	}
	f.Value = value
	return nil
}

// JumpToWidget scrolls the view to the page of a widget and selects it
func (s *Session) JumpToWidget(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[name]
	if !ok || !containsString(s.widgets, name) {
		return flowerrors.Newf(flowerrors.ErrorTypeFieldNotFound, "widget %q not found", name)
	}
	s.currentPage = f.Geometry.Page
	s.selected = name
	return nil
}

// Selected returns the id of the selected annotation, if any
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func copyFlags(flags map[string]bool) map[string]bool {
	if flags == nil {
		return nil
	}
	out := make(map[string]bool, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}

func copyAppearance(a *forms.Appearance) *forms.Appearance {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func copyField(f forms.FormField) forms.FormField {
	cp := f
	cp.Appearance = copyAppearance(f.Appearance)
	if f.Actions != nil {
		cp.Actions = make(map[string][]forms.Action, len(f.Actions))
		for k, v := range f.Actions {
			cp.Actions[k] = append([]forms.Action(nil), v...)
		}
	}
	return cp
}
