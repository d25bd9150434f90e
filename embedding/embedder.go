package embedding

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/mom-pipeline/audio"
	"github.com/maastricht-university/mom-pipeline/speech"
)

// Embedder computes the embedding matrix for one run.
type Embedder struct {
	model   Model
	workers int
	log     logrus.FieldLogger
}

// Result is the embedding matrix plus what was substituted to build it.
type Result struct {
	// Matrix has one row per segment, in segment order, each of length D.
	Matrix [][]float64
	// Failures lists segments whose extraction failed (zero rows).
	Failures []*ExtractionError
	// Sanitized lists rows zeroed because they held non-finite values.
	Sanitized []int
}

// NewEmbedder returns an Embedder running at most workers extractions at
// once. workers <= 0 uses GOMAXPROCS.
func NewEmbedder(m Model, workers int, log logrus.FieldLogger) *Embedder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Embedder{model: m, workers: workers, log: log}
}

// Embed extracts one vector per segment. Per-segment failures never abort
// the run; only context cancellation does.
func (e *Embedder) Embed(ctx context.Context, wf *audio.Waveform, segs []speech.Segment) (*Result, error) {
	dim := e.model.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("embedding model reports dimension %d", dim)
	}

	matrix := make([][]float64, len(segs))
	failed := make([]*ExtractionError, len(segs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range segs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := e.extract(gctx, wf, i, segs[i], dim)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed[i] = err
				vec = make([]float64, dim)
			}
			matrix[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A model may fail because of a cancellation gctx had not yet observed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Matrix: matrix}
	for _, f := range failed {
		if f == nil {
			continue
		}
		res.Failures = append(res.Failures, f)
		e.log.WithError(f.Err).WithFields(logrus.Fields{
			"segment": f.Index,
			"start":   f.Start,
			"end":     f.End,
		}).Warn("segment embedding failed; using zero vector")
	}

	res.Sanitized = Sanitize(matrix)
	if len(res.Sanitized) > 0 {
		e.log.WithField("segments", res.Sanitized).Warn("non-finite embeddings replaced with zero vectors")
	}
	return res, nil
}

func (e *Embedder) extract(ctx context.Context, wf *audio.Waveform, i int, seg speech.Segment, dim int) ([]float64, *ExtractionError) {
	start, end := wf.Clip(seg.Start, seg.End)
	fail := func(err error) *ExtractionError {
		return &ExtractionError{Index: i, Start: start, End: end, Err: err}
	}

	clip := wf.Crop(start, end)
	if len(clip) == 0 {
		return nil, fail(ErrEmptyClip)
	}
	vec, err := e.model.Extract(ctx, clip, wf.SampleRate)
	if err != nil {
		return nil, fail(err)
	}
	if len(vec) != dim {
		return nil, fail(fmt.Errorf("model returned %d values, want %d", len(vec), dim))
	}
	out := make([]float64, dim)
	copy(out, vec)
	return out, nil
}

// Sanitize zeroes every row that contains a NaN or infinite value and
// returns the indices of the rows it replaced.
func Sanitize(matrix [][]float64) []int {
	var replaced []int
	for i, row := range matrix {
		if finite(row) {
			continue
		}
		for j := range row {
			row[j] = 0
		}
		replaced = append(replaced, i)
	}
	return replaced
}

func finite(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
