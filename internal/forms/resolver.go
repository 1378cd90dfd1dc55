package forms

import (
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

const (
	// DateDefaultValue is the format token shown in an empty date field
	DateDefaultValue = "m-d-yyyy"

	// DateFormatScript formats a date field on fill and on commit
	DateFormatScript = `AFDate_FormatEx("mmm d, yyyy");`

	// SignaturePlaceholderImage is a 1x1 PNG used as the unsigned appearance
	SignaturePlaceholderImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAAAXNSR0IArs4c6QAAAARnQU1BAACxjwv8YQUAAAAJcEhZcwAADsMAAA7DAcdvqGQAAAAYdEVYdFNvZnR3YXJlAHBhaW50Lm5ldCA0LjEuMWMqnEsAAAANSURBVBhXY/j//z8DAAj8Av6IXwbgAAAAAElFTkSuQmCC"
)

// FieldTypeSpec describes how a placeholder of a given kind is converted
type FieldTypeSpec struct {
	Kind   Kind
	Type   FieldType
	Widget WidgetKind

	// UseCallerValue means the placeholder's own value becomes the field value
	UseCallerValue bool
	DefaultValue   string
	Actions        map[string][]Action
	Appearance     *Appearance
}

var fieldTypeSpecs = map[Kind]FieldTypeSpec{
	KindText: {
		Kind:           KindText,
		Type:           FieldTypeText,
		Widget:         WidgetText,
		UseCallerValue: true,
	},
	KindDate: {
		Kind:         KindDate,
		Type:         FieldTypeText,
		Widget:       WidgetDatePicker,
		DefaultValue: DateDefaultValue,
		Actions: map[string][]Action{
			TriggerFormat:    {{Name: "JavaScript", JavaScript: DateFormatScript}},
			TriggerKeystroke: {{Name: "JavaScript", JavaScript: DateFormatScript}},
		},
	},
	KindSignature: {
		Kind:   KindSignature,
		Type:   FieldTypeSignature,
		Widget: WidgetSignature,
		Appearance: &Appearance{
			Data:    SignaturePlaceholderImage,
			OffsetX: 100,
			OffsetY: 100,
		},
	},
}

// Resolve returns the conversion behaviour for kind
func Resolve(kind Kind) (FieldTypeSpec, error) {
	spec, ok := fieldTypeSpecs[kind]
	if !ok {
		return FieldTypeSpec{}, flowerrors.Newf(flowerrors.ErrorTypeUnknownFieldKind, "kind %q", kind)
	}
	return spec, nil
}

// Build creates the form field for p. The returned field shares nothing
// mutable with the field type table.
func (s FieldTypeSpec) Build(name string, p Placeholder) FormField {
	field := FormField{
		Name:     name,
		Kind:     s.Kind,
		Type:     s.Type,
		Widget:   s.Widget,
		Value:    s.DefaultValue,
		Geometry: p.Geometry,
		Author:   p.Author,
		Assignee: p.Assignee,
	}
	if s.UseCallerValue {
		field.Value = p.Value
	}
	if len(s.Actions) > 0 {
		field.Actions = make(map[string][]Action, len(s.Actions))
		for trigger, actions := range s.Actions {
			field.Actions[trigger] = append([]Action(nil), actions...)
		}
	}
	if s.Appearance != nil {
		appearance := *s.Appearance
		field.Appearance = &appearance
	}
	return field
}
