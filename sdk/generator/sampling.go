package generator

import (
	"math"
	"math/rand/v2"
)

// temper raises weights to 1/temperature: values above one flatten the
// distribution, values below one sharpen it.
func temper(weights []float64, temperature float64) []float64 {
	out := make([]float64, len(weights))
	for i, w := range weights {
		if w > 0 {
			out[i] = math.Pow(w, 1/temperature)
		}
	}
	return out
}

// sampleIndex draws an index proportionally to weights. It returns -1 when
// every weight is zero.
func sampleIndex(r *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	x := r.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// temperProbability moves p in logit space: logit(p') = logit(p)/temperature.
func temperProbability(p, temperature float64) float64 {
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	logit := math.Log(p/(1-p)) / temperature
	return 1 / (1 + math.Exp(-logit))
}

// histogram of integer observations with additive smoothing over [lo, hi].
type counter struct {
	lo, hi int
	counts []float64
}

func newCounter(lo, hi int) *counter {
	return &counter{lo: lo, hi: hi, counts: make([]float64, hi-lo+1)}
}

func (c *counter) add(v int) {
	if v < c.lo {
		v = c.lo
	}
	if v > c.hi {
		v = c.hi
	}
	c.counts[v-c.lo]++
}

func (c *counter) total() float64 {
	var t float64
	for _, v := range c.counts {
		t += v
	}
	return t
}

// weights returns smoothed counts; smoothing keeps unseen values reachable.
func (c *counter) weights(smoothing float64) []float64 {
	out := make([]float64, len(c.counts))
	for i, v := range c.counts {
		out[i] = v + smoothing
	}
	return out
}

func (c *counter) sample(r *rand.Rand, temperature, smoothing float64) int {
	i := sampleIndex(r, temper(c.weights(smoothing), temperature))
	if i < 0 {
		return c.lo
	}
	return c.lo + i
}
