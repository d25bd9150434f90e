package orchestrator

import (
	"github.com/maastricht-university/mom-pipeline/speech"
	"github.com/maastricht-university/mom-pipeline/transcript"
)

// Request describes one recording to diarize.
type Request struct {
	AudioPath string
	Speakers  int // K; zero uses the configured value
	ModelSize string
	Language  string

	// SegmentsFile replays saved recognizer output instead of running the
	// configured recognizer.
	SegmentsFile string
}

type SpeakerStat struct {
	Speaker  int     `json:"speaker"`
	Name     string  `json:"name"`
	Segments int     `json:"segments"`
	Seconds  float64 `json:"seconds"`
	Share    float64 `json:"share"` // of total speaking time
}

// Result is everything a successful run produced.
type Result struct {
	RunID     string
	AudioPath string
	Segments  []speech.Segment
	Labels    []int

	// Failed and Sanitized index segments whose embeddings were replaced
	// by zero vectors.
	Failed    []int
	Sanitized []int

	Transcript *transcript.Transcript
	Text       string
	Speakers   []SpeakerStat

	// OverlapSeconds is the time during which recognizer segments overlap.
	OverlapSeconds float64

	Minutes   string
	OutputDir string // empty when nothing was persisted
}
