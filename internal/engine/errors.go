package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks image bytes that could not be decoded
	ErrDecode = errors.New("image could not be decoded")
	// ErrNoReferences is returned when no usable reference note exists
	ErrNoReferences = errors.New("no usable reference notes")
	// ErrNoFeatures marks an image without extractable keypoints
	ErrNoFeatures = errors.New("no extractable features")

	errEmptyBuffer = errors.New("empty image buffer")
	errEmptyImage  = errors.New("image has zero area")
)

// DecodeError is returned when an image cannot be turned into a pixel grid
type DecodeError struct {
	Label string
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("decode image: %v", e.Cause)
	}
	return fmt.Sprintf("decode %q: %v", e.Label, e.Cause)
}

// Unwrap exposes both ErrDecode and the underlying cause
func (e *DecodeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Cause}
}
