// Package diarize assigns speaker identities to segment embeddings.
//
// Clustering is agglomerative: every segment starts as its own cluster and
// the two nearest clusters are merged until exactly K remain. Cluster
// distances are maintained with Lance-Williams updates, so the full
// pairwise matrix is computed once per run.
//
// The result is fully deterministic. Ties between equally distant pairs go
// to the pair with the lowest indices, and labels are numbered by first
// appearance in segment order, so the first segment is always speaker 0.
package diarize

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

type Linkage string

const (
	Ward     Linkage = "ward"
	Average  Linkage = "average"
	Complete Linkage = "complete"
	Single   Linkage = "single"
)

type Metric string

const (
	Euclidean Metric = "euclidean"
	Cosine    Metric = "cosine"
)

// Clusterer groups embedding rows into a fixed number of speakers.
// A Clusterer is immutable and safe for concurrent use.
type Clusterer struct {
	linkage Linkage
	metric  Metric
}

// New returns a Clusterer. Empty arguments select ward linkage over
// Euclidean distance. Ward is only defined for Euclidean distance.
func New(linkage Linkage, metric Metric) (*Clusterer, error) {
	if linkage == "" {
		linkage = Ward
	}
	if metric == "" {
		metric = Euclidean
	}
	switch linkage {
	case Ward, Average, Complete, Single:
	default:
		return nil, fmt.Errorf("unknown linkage %q", linkage)
	}
	switch metric {
	case Euclidean, Cosine:
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	if linkage == Ward && metric != Euclidean {
		return nil, fmt.Errorf("ward linkage requires euclidean metric, got %q", metric)
	}
	return &Clusterer{linkage: linkage, metric: metric}, nil
}

func (c *Clusterer) Linkage() Linkage { return c.linkage }
func (c *Clusterer) Metric() Metric   { return c.metric }

// Cluster returns one label in [0, k) per row of x.
func (c *Clusterer) Cluster(ctx context.Context, x [][]float64, k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("speaker count must be at least 1, got %d", k)
	}
	n := len(x)
	if n < k {
		return nil, &InsufficientDataError{Segments: n, Speakers: k}
	}
	if err := validate(x); err != nil {
		return nil, err
	}

	dist, err := c.pairwise(ctx, x)
	if err != nil {
		return nil, err
	}

	h := &hierarchy{
		n:       n,
		d:       dist,
		size:    make([]int, n),
		active:  make([]bool, n),
		nn:      make([]int, n),
		nnDist:  make([]float64, n),
		linkage: c.linkage,
	}
	assign := make([]int, n)
	for i := 0; i < n; i++ {
		h.size[i] = 1
		h.active[i] = true
		assign[i] = i
	}
	for i := 0; i < n; i++ {
		h.scan(i)
	}

	for clusters := n; clusters > k; clusters-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i, j := h.closest()
		h.merge(i, j)
		for p := range assign {
			if assign[p] == j {
				assign[p] = i
			}
		}
	}
	return relabel(assign), nil
}

func validate(x [][]float64) error {
	if len(x) == 0 {
		return nil
	}
	dim := len(x[0])
	if dim == 0 {
		return fmt.Errorf("embedding rows are empty")
	}
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("embedding row %d has %d values, want %d", i, len(row), dim)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("embedding row %d: %w", i, ErrNonFinite)
			}
		}
	}
	return nil
}

// pairwise fills a dense symmetric n*n distance matrix.
func (c *Clusterer) pairwise(ctx context.Context, x [][]float64) ([]float64, error) {
	n := len(x)
	var norms []float64
	if c.metric == Cosine {
		norms = make([]float64, n)
		for i, row := range x {
			norms[i] = floats.Norm(row, 2)
		}
	}
	d := make([]float64, n*n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			var v float64
			if c.metric == Cosine {
				v = cosineDistance(x[i], x[j], norms[i], norms[j])
			} else {
				v = floats.Distance(x[i], x[j], 2)
			}
			d[i*n+j] = v
			d[j*n+i] = v
		}
	}
	return d, nil
}

// cosineDistance is 1 - cos(a, b). A zero vector is at distance 1 from
// anything except another zero vector.
func cosineDistance(a, b []float64, na, nb float64) float64 {
	switch {
	case na == 0 && nb == 0:
		return 0
	case na == 0 || nb == 0:
		return 1
	}
	v := 1 - floats.Dot(a, b)/(na*nb)
	return math.Min(2, math.Max(0, v))
}

// relabel numbers clusters by first appearance.
func relabel(assign []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(assign))
	for p, a := range assign {
		id, ok := ids[a]
		if !ok {
			id = len(ids)
			ids[a] = id
		}
		out[p] = id
	}
	return out
}
