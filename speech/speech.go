// Package speech wraps the speech recognizers that turn the normalized
// recording into time-stamped text segments.
//
// The recognizer is a collaborator: the pipeline only relies on the
// [Segmenter] contract of returning chronologically ordered segments
// whose bounds are seconds from the start of the recording.
package speech

import "context"

// Segment is one contiguous span of recognized speech.
type Segment struct {
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
	Text  string  `json:"text"`
}

// Duration returns End-Start, never negative.
func (s Segment) Duration() float64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Options tune a single recognition call.
type Options struct {
	// ModelSize selects the recognizer's quality tier (e.g. "base", "large").
	ModelSize string
	// Language is a recognizer language hint; empty lets the model detect it.
	Language string
}

// Segmenter recognizes speech in a mono WAV file.
//
// Implementations must be safe for concurrent use by independent runs.
type Segmenter interface {
	Name() string
	Segment(ctx context.Context, wavPath string, opts Options) ([]Segment, error)
}
