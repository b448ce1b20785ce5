package services

import "errors"

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type UnsupportedFormatError struct{ Message string }

func (e *UnsupportedFormatError) Error() string { return e.Message }

// AIError wraps a failed call to the generative model.
type AIError struct {
	Err error
}

func (e *AIError) Error() string { return "AI request failed: " + e.Err.Error() }
func (e *AIError) Unwrap() error { return e.Err }

// InvalidAPIKeyError is returned when the model API rejects the request with
// a 400, which in practice means the configured key is unusable.
type InvalidAPIKeyError struct {
	Err error
}

func (e *InvalidAPIKeyError) Error() string { return "invalid Gemini API key: " + e.Err.Error() }
func (e *InvalidAPIKeyError) Unwrap() error { return e.Err }

var ErrNoImage = errors.New("model returned no image")
