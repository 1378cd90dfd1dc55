package viewer

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// XFDFNamespace is the namespace of exported annotation documents
const XFDFNamespace = "http://ns.adobe.com/xfdf/"

// ExportOptions selects which annotations go into an export. Field values
// are always exported.
type ExportOptions struct {
	Widgets      bool
	Placeholders bool
}

type xfdfDocument struct {
	XMLName xml.Name     `xml:"http://ns.adobe.com/xfdf/ xfdf"`
	PDFInfo *xfdfPDFInfo `xml:"pdf-info,omitempty"`
	Fields  []xfdfField  `xml:"fields>field"`
	Annots  *xfdfAnnots  `xml:"annots,omitempty"`
}

type xfdfAnnots struct {
	FreeText []xfdfFreeText `xml:"freetext"`
}

type xfdfPDFInfo struct {
	FieldDefs []xfdfFieldDef `xml:"ffield"`
	Widgets   []xfdfWidget   `xml:"widget"`
}

type xfdfFieldDef struct {
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Kind     string       `xml:"kind,attr"`
	Assignee string       `xml:"assignee,attr,omitempty"`
	Author   string       `xml:"author,attr,omitempty"`
	Actions  []xfdfAction `xml:"action"`
}

type xfdfAction struct {
	Trigger string `xml:"trigger,attr"`
	Name    string `xml:"name,attr"`
	Script  string `xml:",chardata"`
}

type xfdfWidget struct {
	Field      string          `xml:"field,attr"`
	Kind       string          `xml:"kind,attr"`
	Page       int             `xml:"page,attr"`
	Rect       string          `xml:"rect,attr"`
	Rotation   int             `xml:"rotation,attr"`
	Appearance *xfdfAppearance `xml:"appearance,omitempty"`
}

type xfdfAppearance struct {
	OffsetX float64 `xml:"offset-x,attr"`
	OffsetY float64 `xml:"offset-y,attr"`
	Data    string  `xml:",chardata"`
}

type xfdfField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type xfdfFreeText struct {
	Name     string `xml:"name,attr"`
	Page     int    `xml:"page,attr"`
	Rect     string `xml:"rect,attr"`
	Rotation int    `xml:"rotation,attr"`
	Kind     string `xml:"kind,attr"`
	Assignee string `xml:"assignee,attr"`
	Title    string `xml:"title,attr,omitempty"`
	Value    string `xml:"value,attr,omitempty"`
	Contents string `xml:"contents"`
}

// ExportAnnotations serializes the annotation layer to XFDF. Pages are
// written zero-based.
func (s *Session) ExportAnnotations(opts ExportOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", flowerrors.ErrNoDocumentLoaded
	}

	doc := xfdfDocument{}
	for _, name := range s.sortedFieldNamesLocked() {
		f := s.fields[name]
		doc.Fields = append(doc.Fields, xfdfField{Name: f.Name, Value: f.Value})
	}

	if opts.Widgets && len(s.widgets) > 0 {
		info := &xfdfPDFInfo{}
		for _, name := range s.widgets {
			f, ok := s.fields[name]
			if !ok {
				continue
			}
			info.FieldDefs = append(info.FieldDefs, fieldDef(*f))
			info.Widgets = append(info.Widgets, widgetOf(*f))
		}
		doc.PDFInfo = info
	}

	if opts.Placeholders && len(s.placeholders) > 0 {
		annots := &xfdfAnnots{}
		for _, p := range s.placeholders {
			annots.FreeText = append(annots.FreeText, xfdfFreeText{
				Name:     p.ID,
				Page:     p.Geometry.Page - 1,
				Rect:     p.Geometry.Rect(),
				Rotation: p.Geometry.Rotation,
				Kind:     string(p.Kind),
				Assignee: p.Assignee,
				Title:    p.Author,
				Value:    p.Value,
				Contents: p.Label,
			})
		}
		doc.Annots = annots
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", flowerrors.Wrap(flowerrors.ErrorTypeConversionExportFailure, "failed to encode annotations", err)
	}
	return xml.Header + string(out), nil
}

// ImportAnnotations merges an XFDF document into the annotation layer.
// Widgets and fields are keyed by name, placeholders by id.
func (s *Session) ImportAnnotations(data string) error {
	var doc xfdfDocument
	if err := xml.Unmarshal([]byte(data), &doc); err != nil {
		return flowerrors.Wrap(flowerrors.ErrorTypeImportFailure, "failed to decode annotations", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return flowerrors.ErrNoDocumentLoaded
	}

	defs := make(map[string]xfdfFieldDef)
	var widgets []forms.FormField
	if doc.PDFInfo != nil {
		for _, d := range doc.PDFInfo.FieldDefs {
			defs[d.Name] = d
		}
		for _, w := range doc.PDFInfo.Widgets {
			g, err := parseGeometry(w.Page, w.Rect, w.Rotation)
			if err != nil {
				return err
			}
			if _, err := s.doc.PageInfo(g.Page); err != nil {
				return flowerrors.Wrap(flowerrors.ErrorTypeImportFailure, "widget "+w.Field, err)
			}
			f := forms.FormField{
				Name:     w.Field,
				Widget:   forms.WidgetKind(w.Kind),
				Geometry: g,
			}
			if w.Appearance != nil {
				f.Appearance = &forms.Appearance{
					Data:    strings.TrimSpace(w.Appearance.Data),
					OffsetX: w.Appearance.OffsetX,
					OffsetY: w.Appearance.OffsetY,
				}
			}
			if d, ok := defs[w.Field]; ok {
				applyFieldDef(&f, d)
			}
			widgets = append(widgets, f)
		}
	}

	var placeholders []forms.Placeholder
	var freeText []xfdfFreeText
	if doc.Annots != nil {
		freeText = doc.Annots.FreeText
	}
	for _, a := range freeText {
		g, err := parseGeometry(a.Page, a.Rect, a.Rotation)
		if err != nil {
			return err
		}
		if _, err := s.doc.PageInfo(g.Page); err != nil {
			return flowerrors.Wrap(flowerrors.ErrorTypeImportFailure, "placeholder "+a.Name, err)
		}
		placeholders = append(placeholders, forms.Placeholder{
			ID:       a.Name,
			Geometry: g,
			Kind:     forms.Kind(a.Kind),
			Assignee: a.Assignee,
			Label:    a.Contents,
			Value:    a.Value,
			Author:   a.Title,
		})
	}

	for _, f := range widgets {
		cp := copyField(f)
		if existing, ok := s.fields[f.Name]; ok && cp.Value == "" {
			cp.Value = existing.Value
		}
		s.fields[f.Name] = &cp
		if !containsString(s.widgets, f.Name) {
			s.widgets = append(s.widgets, f.Name)
		}
	}
	for _, v := range doc.Fields {
		if f, ok := s.fields[v.Name]; ok {
			f.Value = v.Value
			continue
		}
		s.fields[v.Name] = &forms.FormField{Name: v.Name, Value: v.Value}
	}
	for _, p := range placeholders {
		replaced := false
		for i := range s.placeholders {
			if s.placeholders[i].ID == p.ID {
				s.placeholders[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			s.placeholders = append(s.placeholders, p)
		}
	}

	s.logger.Debug("annotations imported",
		"widgets", len(widgets),
		"fields", len(doc.Fields),
		"placeholders", len(placeholders))
	return nil
}

func (s *Session) sortedFieldNamesLocked() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldDef(f forms.FormField) xfdfFieldDef {
	d := xfdfFieldDef{
		Name:     f.Name,
		Type:     string(f.Type),
		Kind:     string(f.Kind),
		Assignee: f.Assignee,
		Author:   f.Author,
	}
	for _, trigger := range []string{forms.TriggerFormat, forms.TriggerKeystroke} {
		for _, a := range f.Actions[trigger] {
			d.Actions = append(d.Actions, xfdfAction{Trigger: trigger, Name: a.Name, Script: a.JavaScript})
		}
	}
	return d
}

func applyFieldDef(f *forms.FormField, d xfdfFieldDef) {
	f.Type = forms.FieldType(d.Type)
	f.Kind = forms.Kind(d.Kind)
	f.Assignee = d.Assignee
	f.Author = d.Author
	for _, a := range d.Actions {
		if f.Actions == nil {
			f.Actions = make(map[string][]forms.Action)
		}
		f.Actions[a.Trigger] = append(f.Actions[a.Trigger], forms.Action{Name: a.Name, JavaScript: a.Script})
	}
}

func widgetOf(f forms.FormField) xfdfWidget {
	w := xfdfWidget{
		Field:    f.Name,
		Kind:     string(f.Widget),
		Page:     f.Geometry.Page - 1,
		Rect:     f.Geometry.Rect(),
		Rotation: f.Geometry.Rotation,
	}
	if f.Appearance != nil {
		w.Appearance = &xfdfAppearance{
			OffsetX: f.Appearance.OffsetX,
			OffsetY: f.Appearance.OffsetY,
			Data:    f.Appearance.Data,
		}
	}
	return w
}

// parseGeometry reads a zero-based page and an "x1,y1,x2,y2" rect
func parseGeometry(page int, rect string, rotation int) (forms.Geometry, error) {
	parts := strings.Split(rect, ",")
	if len(parts) != 4 {
		return forms.Geometry{}, flowerrors.Newf(flowerrors.ErrorTypeImportFailure, "malformed rect %q", rect)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return forms.Geometry{}, flowerrors.Wrap(flowerrors.ErrorTypeImportFailure, fmt.Sprintf("malformed rect %q", rect), err)
		}
		v[i] = f
	}
	return forms.Geometry{
		Page:     page + 1,
		X:        v[0],
		Y:        v[1],
		Width:    v[2] - v[0],
		Height:   v[3] - v[1],
		Rotation: rotation,
	}, nil
}
