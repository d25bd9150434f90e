package diarize

import (
	"errors"
	"fmt"
)

// ErrNonFinite is returned when the embedding matrix holds NaN or Inf.
var ErrNonFinite = errors.New("non-finite embedding value")

// InsufficientDataError reports fewer segments than requested speakers.
type InsufficientDataError struct {
	Segments int
	Speakers int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot cluster %d segments into %d speakers", e.Segments, e.Speakers)
}
