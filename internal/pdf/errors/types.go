package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// FlowError describes a failure in the prepare/sign/view flow with enough
// context to turn it into a user notification
type FlowError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// ErrorType represents the categories of flow errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNoDocumentLoaded
	ErrorTypeUnknownFieldKind
	ErrorTypeConversionExportFailure
	ErrorTypeEmptyHandoffConsumed
	ErrorTypeInvalidRotation
	ErrorTypeInvalidZoom
	ErrorTypePointerOffPage
	ErrorTypeInvalidDocument
	ErrorTypeFieldNotFound
	ErrorTypeInvalidContentRef
	ErrorTypeImportFailure
)

// ErrorSeverity indicates how the caller should surface an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
)

// Sentinels for errors.Is matching. Any FlowError with the same Type matches.
var (
	ErrNoDocumentLoaded        = &FlowError{Type: ErrorTypeNoDocumentLoaded, Message: "no document loaded"}
	ErrUnknownFieldKind        = &FlowError{Type: ErrorTypeUnknownFieldKind, Message: "unknown field kind"}
	ErrConversionExportFailure = &FlowError{Type: ErrorTypeConversionExportFailure, Message: "annotation export failed"}
	ErrEmptyHandoffConsumed    = &FlowError{Type: ErrorTypeEmptyHandoffConsumed, Message: "no upstream document"}
	ErrInvalidRotation         = &FlowError{Type: ErrorTypeInvalidRotation, Message: "invalid rotation"}
	ErrInvalidZoom             = &FlowError{Type: ErrorTypeInvalidZoom, Message: "invalid zoom level"}
	ErrPointerOffPage          = &FlowError{Type: ErrorTypePointerOffPage, Message: "pointer is not over a page"}
	ErrInvalidDocument         = &FlowError{Type: ErrorTypeInvalidDocument, Message: "invalid document"}
	ErrFieldNotFound           = &FlowError{Type: ErrorTypeFieldNotFound, Message: "field not found"}
	ErrInvalidContentRef       = &FlowError{Type: ErrorTypeInvalidContentRef, Message: "invalid content reference"}
	ErrImportFailure           = &FlowError{Type: ErrorTypeImportFailure, Message: "annotation import failed"}
)

// Error implements the error interface
func (e *FlowError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a FlowError of the same type
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNoDocumentLoaded:
		return "NO_DOCUMENT_LOADED"
	case ErrorTypeUnknownFieldKind:
		return "UNKNOWN_FIELD_KIND"
	case ErrorTypeConversionExportFailure:
		return "CONVERSION_EXPORT_FAILURE"
	case ErrorTypeEmptyHandoffConsumed:
		return "EMPTY_HANDOFF_CONSUMED"
	case ErrorTypeInvalidRotation:
		return "INVALID_ROTATION"
	case ErrorTypeInvalidZoom:
		return "INVALID_ZOOM"
	case ErrorTypePointerOffPage:
		return "POINTER_OFF_PAGE"
	case ErrorTypeInvalidDocument:
		return "INVALID_DOCUMENT"
	case ErrorTypeFieldNotFound:
		return "FIELD_NOT_FOUND"
	case ErrorTypeInvalidContentRef:
		return "INVALID_CONTENT_REF"
	case ErrorTypeImportFailure:
		return "IMPORT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeUnknownFieldKind, ErrorTypePointerOffPage, ErrorTypeImportFailure:
		return SeverityWarning
	case ErrorTypeEmptyHandoffConsumed:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether the flow can continue in place after the error.
// Non-recoverable errors send the operator back to the start.
func (et ErrorType) IsRecoverable() bool {
	return et != ErrorTypeEmptyHandoffConsumed
}

// UserMessage returns the text shown to the operator for this error type
func (et ErrorType) UserMessage() string {
	switch et {
	case ErrorTypeNoDocumentLoaded:
		return "Please upload a document first"
	case ErrorTypeConversionExportFailure:
		return "Error signing document. Please try again."
	case ErrorTypeEmptyHandoffConsumed:
		return "No document available. Please prepare a document first."
	case ErrorTypeInvalidDocument:
		return "The selected file is not a readable PDF"
	case ErrorTypeFieldNotFound:
		return "That field does not exist in this document"
	case ErrorTypeInvalidContentRef:
		return "The document location could not be resolved"
	default:
		return "Something went wrong. Please try again."
	}
}

// New creates a FlowError of the given type
func New(errorType ErrorType, message string) *FlowError {
	return &FlowError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a FlowError with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *FlowError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap wraps a cause as a FlowError of the given type
func Wrap(errorType ErrorType, message string, err error) *FlowError {
	fe := New(errorType, message)
	fe.Err = err
	return fe
}

// WithContext adds context to an existing FlowError
func (e *FlowError) WithContext(context string) *FlowError {
	e.Context = context
	return e
}

// WithStage records the stage the error was raised in
func (e *FlowError) WithStage(stage string) *FlowError {
	e.Stage = stage
	return e
}

// GetSeverity returns the severity of this specific error
func (e *FlowError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// TypeOf extracts the ErrorType from any error chain. Errors that are not
// FlowErrors report ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var fe *FlowError
	if stderrors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeUnknown
}
