package transcript

import (
	"fmt"
	"io"
	"math"
	"strings"
)

type FormatOptions struct {
	// Subsecond renders block starts as HH:MM:SS.mmm instead of rounding
	// to the nearest second.
	Subsecond bool
}

// Format renders t as text: a "SPEAKER <n> <time>" header line followed
// by the block text, with a blank line between blocks.
func (t *Transcript) Format(opts FormatOptions) string {
	var b strings.Builder
	for i, blk := range t.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n%s\n", SpeakerName(blk.Speaker), Timestamp(blk.Start, opts.Subsecond), blk.Text)
	}
	return b.String()
}

func (t *Transcript) String() string { return t.Format(FormatOptions{}) }

// WriteTo writes the default rendering of t to w.
func (t *Transcript) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.String())
	return int64(n), err
}

// Timestamp formats sec as HH:MM:SS. Whole seconds round half to even;
// with subsecond set, milliseconds are kept as HH:MM:SS.mmm.
func Timestamp(sec float64, subsecond bool) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	if subsecond {
		ms := int64(math.Round(sec * 1000))
		s := ms / 1000
		return fmt.Sprintf("%02d:%02d:%02d.%03d", s/3600, s/60%60, s%60, ms%1000)
	}
	s := int64(math.RoundToEven(sec))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
