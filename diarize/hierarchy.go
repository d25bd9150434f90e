package diarize

import "math"

// hierarchy is the working state of one clustering run. Cluster i keeps
// its slot for as long as it is active; a merge of i < j lands in i.
//
// nn[i] is the nearest active cluster with a higher index than i and
// nnDist[i] its distance, or -1 and +Inf when there is none. Scanning only
// higher indices makes the global minimum over rows the lexicographically
// first closest pair.
type hierarchy struct {
	n       int
	d       []float64
	size    []int
	active  []bool
	nn      []int
	nnDist  []float64
	linkage Linkage
}

func (h *hierarchy) at(i, j int) float64 { return h.d[i*h.n+j] }

func (h *hierarchy) set(i, j int, v float64) {
	h.d[i*h.n+j] = v
	h.d[j*h.n+i] = v
}

func (h *hierarchy) scan(i int) {
	h.nn[i], h.nnDist[i] = -1, math.Inf(1)
	for j := i + 1; j < h.n; j++ {
		if !h.active[j] {
			continue
		}
		if v := h.at(i, j); v < h.nnDist[i] {
			h.nn[i], h.nnDist[i] = j, v
		}
	}
}

func (h *hierarchy) closest() (int, int) {
	best, bestDist := -1, math.Inf(1)
	for i := 0; i < h.n; i++ {
		if !h.active[i] || h.nn[i] < 0 {
			continue
		}
		if best < 0 || h.nnDist[i] < bestDist {
			best, bestDist = i, h.nnDist[i]
		}
	}
	return best, h.nn[best]
}

func (h *hierarchy) merge(i, j int) {
	ni, nj := float64(h.size[i]), float64(h.size[j])
	dij := h.at(i, j)
	for k := 0; k < h.n; k++ {
		if !h.active[k] || k == i || k == j {
			continue
		}
		h.set(k, i, h.update(h.at(k, i), h.at(k, j), dij, ni, nj, float64(h.size[k])))
	}
	h.active[j] = false
	h.size[i] += h.size[j]
	h.size[j] = 0

	h.scan(i)
	for k := 0; k < h.n; k++ {
		if !h.active[k] || k == i {
			continue
		}
		switch {
		case h.nn[k] == i || h.nn[k] == j:
			h.scan(k)
		case k < i:
			if v := h.at(k, i); v < h.nnDist[k] || (v == h.nnDist[k] && i < h.nn[k]) {
				h.nn[k], h.nnDist[k] = i, v
			}
		}
	}
}

// update is the Lance-Williams distance from k to the union of i and j.
func (h *hierarchy) update(dki, dkj, dij, ni, nj, nk float64) float64 {
	switch h.linkage {
	case Single:
		return math.Min(dki, dkj)
	case Complete:
		return math.Max(dki, dkj)
	case Average:
		return (ni*dki + nj*dkj) / (ni + nj)
	default:
		v := ((nk+ni)*dki*dki + (nk+nj)*dkj*dkj - nk*dij*dij) / (ni + nj + nk)
		return math.Sqrt(math.Max(0, v))
	}
}
