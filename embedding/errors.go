package embedding

import (
	"errors"
	"fmt"
)

// ErrEmptyClip is returned for a segment whose clipped span holds no samples.
var ErrEmptyClip = errors.New("empty clip")

// ExtractionError records why one segment has no embedding. It is absorbed
// by the embedder, which substitutes a zero vector.
type ExtractionError struct {
	Index      int
	Start, End float64
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("embed segment %d [%.2f-%.2f]: %v", e.Index, e.Start, e.End, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
