package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// hypergeom describes drawing n cards without replacement from a pool of N
// that holds K successes.
type hypergeom struct {
	N, K, n int
}

// newHypergeom clamps K into [0, N]. Parameters it cannot describe (empty
// pool, empty draw, draw larger than the pool) yield ok == false.
func newHypergeom(pool, successes, draws int) (hypergeom, bool) {
	if pool <= 0 || draws <= 0 || draws > pool {
		return hypergeom{}, false
	}
	if successes < 0 {
		successes = 0
	}
	if successes > pool {
		successes = pool
	}
	return hypergeom{N: pool, K: successes, n: draws}, true
}

func (h hypergeom) support() (lo, hi int) {
	lo = h.n - (h.N - h.K)
	if lo < 0 {
		lo = 0
	}
	hi = h.n
	if h.K < hi {
		hi = h.K
	}
	return lo, hi
}

func logChoose(n, k int) float64 {
	return combin.LogGeneralizedBinomial(float64(n), float64(k))
}

// pmf returns P(X == k).
func (h hypergeom) pmf(k int) float64 {
	lo, hi := h.support()
	if k < lo || k > hi {
		return 0
	}
	return math.Exp(logChoose(h.K, k) + logChoose(h.N-h.K, h.n-k) - logChoose(h.N, h.n))
}

// atLeast returns P(X >= m).
func (h hypergeom) atLeast(m int) float64 {
	lo, hi := h.support()
	if m < lo {
		m = lo
	}
	p := 0.0
	for k := m; k <= hi; k++ {
		p += h.pmf(k)
	}
	return clamp01(p)
}

// atMost returns P(X <= m).
func (h hypergeom) atMost(m int) float64 {
	lo, hi := h.support()
	if m > hi {
		m = hi
	}
	p := 0.0
	for k := lo; k <= m; k++ {
		p += h.pmf(k)
	}
	return clamp01(p)
}

// tailAtLeast is P(X >= m) or NaN for degenerate parameters.
func tailAtLeast(pool, successes, draws, m int) float64 {
	h, ok := newHypergeom(pool, successes, draws)
	if !ok {
		return math.NaN()
	}
	return h.atLeast(m)
}

// tailAtMost is P(X <= m) or NaN for degenerate parameters.
func tailAtMost(pool, successes, draws, m int) float64 {
	h, ok := newHypergeom(pool, successes, draws)
	if !ok {
		return math.NaN()
	}
	return h.atMost(m)
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
