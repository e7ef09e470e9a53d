package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrTransport       = errors.New("transport failure")
	ErrService         = errors.New("service failure")
	ErrFormat          = errors.New("unexpected response format")
	ErrExport          = errors.New("export failure")
	ErrInvalidInput    = errors.New("invalid input")

	ErrNoImageSelected      = errors.New("no image selected")
	ErrConversionInFlight   = errors.New("conversion already in progress")
	ErrConversionSuperseded = errors.New("conversion result superseded")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ServiceError carries the message reported by the conversion service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e == nil {
		return "service error"
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return ErrService
}

// NewServiceError builds the user-facing service failure, falling back to a
// status-derived message when the server did not supply one. A non-positive
// status means the failure was reported in the response body.
func NewServiceError(statusCode int, message string) *ServiceError {
	message = strings.TrimSpace(message)
	if message == "" {
		if statusCode <= 0 {
			message = "Conversion failed."
		} else {
			message = fmt.Sprintf("Server responded with status: %d", statusCode)
		}
	}
	return &ServiceError{StatusCode: statusCode, Message: message}
}

// FormatError describes a response whose shape does not match the mode contract.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// UserMessage returns the short text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Message
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return "Could not parse the data from the image: " + formatErr.Reason
	}

	switch {
	case IsKind(err, ErrInvalidFileType):
		return "Please select a valid image file (JPG, PNG)."
	case IsKind(err, ErrNoImageSelected):
		return "Please select an image first!"
	case IsKind(err, ErrConversionInFlight):
		return "A conversion is already running."
	case IsKind(err, ErrConversionSuperseded):
		return "The conversion was discarded because the session was cleared."
	case IsKind(err, ErrTransport):
		return "Could not reach the conversion service."
	case IsKind(err, ErrExport):
		return "No data to download."
	default:
		return err.Error()
	}
}
