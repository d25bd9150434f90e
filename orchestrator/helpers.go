package orchestrator

import (
	"math"
	"sort"

	"github.com/maastricht-university/mom-pipeline/speech"
	"github.com/maastricht-university/mom-pipeline/transcript"
)

// speakerStats sums speaking time per label. Every label in [0, k) gets an
// entry, even one no segment ended up with.
func speakerStats(segs []speech.Segment, labels []int, k int) []SpeakerStat {
	out := make([]SpeakerStat, k)
	for i := range out {
		out[i] = SpeakerStat{Speaker: i, Name: transcript.SpeakerName(i)}
	}
	total := 0.0
	for i, s := range segs {
		d := s.Duration()
		total += d
		out[labels[i]].Segments++
		out[labels[i]].Seconds += d
	}
	if total > 0 {
		for i := range out {
			out[i].Share = out[i].Seconds / total
		}
	}
	return out
}

// overlapSeconds is the time covered by more than one segment.
func overlapSeconds(segs []speech.Segment) float64 {
	if len(segs) == 0 {
		return 0
	}
	type edge struct {
		t     float64
		delta int
	}
	edges := make([]edge, 0, 2*len(segs))
	for _, s := range segs {
		edges = append(edges, edge{t: s.Start, delta: +1}, edge{t: math.Max(s.Start, s.End), delta: -1})
	}
	// ends sort before starts at the same instant, so touching segments do not overlap
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t != edges[j].t {
			return edges[i].t < edges[j].t
		}
		return edges[i].delta < edges[j].delta
	})
	active := 0
	last := edges[0].t
	overlap := 0.0
	for _, e := range edges {
		if active > 1 {
			overlap += e.t - last
		}
		active += e.delta
		last = e.t
	}
	return overlap
}

func checkSegments(segs []speech.Segment) error {
	for i, s := range segs {
		if !(s.Start >= 0) || !(s.End > s.Start) || math.IsInf(s.End, 0) {
			return &InvalidSegmentError{Index: i, Start: s.Start, End: s.End}
		}
	}
	return nil
}
