package forms

// Style is a set of CSS-like properties applied when a widget is drawn
type Style map[string]string

// StyleFunc picks the style for a widget. It is passed explicitly to the
// viewer when drawing so that callers can swap strategies per stage.
type StyleFunc func(field FormField) Style

// PreparationStyles outlines signature widgets right after conversion
func PreparationStyles(field FormField) Style {
	if field.Widget == WidgetSignature {
		return Style{"border": "1px solid #a5c7ff"}
	}
	return nil
}

// SigningStyles highlights every fillable widget for the signer
func SigningStyles(field FormField) Style {
	switch field.Widget {
	case WidgetText, WidgetDatePicker:
		return Style{
			"background-color": "#a5c7ff",
			"color":            "white",
		}
	case WidgetSignature:
		return Style{"border": "1px solid #a5c7ff"}
	}
	return nil
}
