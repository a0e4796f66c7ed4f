package classifier

import "gonum.org/v1/gonum/stat"

// history is a bounded FIFO that drops the oldest sample on overflow.
type history struct {
	values []float64
	size   int
}

func newHistory(size int) *history {
	return &history{values: make([]float64, 0, size), size: size}
}

func (h *history) push(v float64) {
	if len(h.values) == h.size {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.size-1]
	}
	h.values = append(h.values, v)
}

func (h *history) len() int { return len(h.values) }

// last returns a view of the newest n samples.
func (h *history) last(n int) []float64 {
	if n > len(h.values) {
		n = len(h.values)
	}
	return h.values[len(h.values)-n:]
}

func (h *history) mean() float64 {
	if len(h.values) == 0 {
		return 0
	}
	return stat.Mean(h.values, nil)
}

func (h *history) clear() {
	h.values = h.values[:0]
}

// popVariance matches numpy's default var (ddof=0).
func popVariance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}
