// Package forms holds the placeholder and form field model shared by the
// placement, conversion and signing stages.
package forms

import (
	"fmt"
	"strings"
)

// Kind is the declared type of a placeholder and of the field it becomes
type Kind string

const (
	KindText      Kind = "TEXT"
	KindSignature Kind = "SIGNATURE"
	KindDate      Kind = "DATE"
)

// Kinds lists every supported kind in display order
var Kinds = []Kind{KindSignature, KindText, KindDate}

// ParseKind normalizes a user-supplied kind. Unrecognized values are returned
// as-is so that the resolver can decide what to do with them.
func ParseKind(s string) Kind {
	return Kind(strings.ToUpper(strings.TrimSpace(s)))
}

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindSignature, KindDate:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Point is a location in either window or page space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry places a field on a page. X and Y are the top-left corner in page
// space, Page is 1-based.
type Geometry struct {
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// Center returns the midpoint of the geometry
func (g Geometry) Center() Point {
	return Point{X: g.X + g.Width/2, Y: g.Y + g.Height/2}
}

// Rect returns the geometry as "x1,y1,x2,y2"
func (g Geometry) Rect() string {
	return fmt.Sprintf("%g,%g,%g,%g", g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

// Assignee is a signer from the roster
type Assignee struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
}

// Placeholder is a draft marker for a future form field
type Placeholder struct {
	ID       string          `json:"id"`
	Geometry Geometry        `json:"geometry"`
	Kind     Kind            `json:"kind"`
	Assignee string          `json:"assignee"`
	Label    string          `json:"label"`
	Value    string          `json:"value,omitempty"`
	Author   string          `json:"author,omitempty"`
	Flags    map[string]bool `json:"flags,omitempty"`
}

// PlaceholderLabel builds the display label used as the field name prefix
func PlaceholderLabel(assignee string, kind Kind) string {
	return fmt.Sprintf("%s_%s_", assignee, kind)
}

// FieldType is the PDF field type (FT entry)
type FieldType string

const (
	FieldTypeText      FieldType = "Tx"
	FieldTypeSignature FieldType = "Sig"
)

// WidgetKind is the interactive widget drawn for a field
type WidgetKind string

const (
	WidgetText       WidgetKind = "text"
	WidgetDatePicker WidgetKind = "datepicker"
	WidgetSignature  WidgetKind = "signature"
)

// Action is a script attached to a field trigger
type Action struct {
	Name       string `json:"name"`
	JavaScript string `json:"javascript"`
}

// Trigger keys used in FormField.Actions
const (
	TriggerFormat    = "F"
	TriggerKeystroke = "K"
)

// Appearance is a default appearance stream for a widget
type Appearance struct {
	Data    string  `json:"data"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// FormField is a finalized, interactive field produced from a placeholder
type FormField struct {
	Name       string              `json:"name"`
	Kind       Kind                `json:"kind"`
	Type       FieldType           `json:"type"`
	Widget     WidgetKind          `json:"widget"`
	Value      string              `json:"value,omitempty"`
	Actions    map[string][]Action `json:"actions,omitempty"`
	Appearance *Appearance         `json:"appearance,omitempty"`
	Geometry   Geometry            `json:"geometry"`
	Author     string              `json:"author,omitempty"`
	Assignee   string              `json:"assignee,omitempty"`
}
