package embeddings

import (
	"errors"
	"fmt"
)

var ErrDecodeFailed = errors.New("image decode failed")

// DecodeError is returned when the supplied bytes are not a valid image.
type DecodeError struct {
	OriginalError error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image decode failed: %v", e.OriginalError)
}

func (*DecodeError) Unwrap() error {
	return ErrDecodeFailed
}

func NewDecodeError(originalError error) *DecodeError {
	return &DecodeError{OriginalError: originalError}
}
