package models

import "errors"

var (
	// ErrConfiguration means the service credential is missing or invalid. It is fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned for requests rejected before any outbound call.
	ErrValidation = errors.New("validation error")

	// ErrTransport covers network failures and upstream rejections, including 401 and 429.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse is returned when the service replied but the payload is not a flashcard collection.
	ErrMalformedResponse = errors.New("malformed response")
)

// Error categories reported to clients.
const (
	CategoryConfiguration     = "configuration"
	CategoryValidation        = "validation"
	CategoryTransport         = "transport"
	CategoryMalformedResponse = "malformed_response"
	CategoryInternal          = "internal"
)

// CategoryOf maps an error onto one of the reported categories.
func CategoryOf(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrTransport):
		return CategoryTransport
	case errors.Is(err, ErrMalformedResponse):
		return CategoryMalformedResponse
	default:
		return CategoryInternal
	}
}
