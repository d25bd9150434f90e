// Package transcript merges labeled segments into the speaker-tagged
// transcript handed to readers and to the minutes generator.
package transcript

import (
	"fmt"
	"strings"

	"github.com/maastricht-university/mom-pipeline/speech"
)

// Block is a run of consecutive segments attributed to one speaker.
type Block struct {
	Speaker int     `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	// First and Last are the indices of the block's first and last segment.
	First int `json:"first_segment"`
	Last  int `json:"last_segment"`
}

// Transcript is the ordered list of blocks for one recording.
type Transcript struct {
	Blocks []Block `json:"blocks"`
}

// Assemble walks segs in order and opens a new block whenever the speaker
// label changes. labels[i] belongs to segs[i]. Segments are never
// reordered, so a speaker who talks twice gets two blocks.
func Assemble(segs []speech.Segment, labels []int) (*Transcript, error) {
	if len(segs) != len(labels) {
		return nil, fmt.Errorf("transcript: %d segments but %d labels", len(segs), len(labels))
	}

	t := &Transcript{}
	var texts []string
	flush := func() {
		if len(t.Blocks) > 0 {
			t.Blocks[len(t.Blocks)-1].Text = strings.Join(texts, " ")
		}
		texts = texts[:0]
	}

	for i, seg := range segs {
		if i == 0 || labels[i] != labels[i-1] {
			flush()
			t.Blocks = append(t.Blocks, Block{Speaker: labels[i], Start: seg.Start, First: i})
		}
		b := &t.Blocks[len(t.Blocks)-1]
		b.End = seg.End
		b.Last = i
		if text := strings.TrimSpace(seg.Text); text != "" {
			texts = append(texts, text)
		}
	}
	flush()
	return t, nil
}

// Speakers returns the number of distinct speaker labels in t.
func (t *Transcript) Speakers() int {
	seen := make(map[int]struct{})
	for _, b := range t.Blocks {
		seen[b.Speaker] = struct{}{}
	}
	return len(seen)
}

// SpeakerName is the display name of a zero-based label.
func SpeakerName(label int) string {
	return fmt.Sprintf("SPEAKER %d", label+1)
}
