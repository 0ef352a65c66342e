package generator

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidHistogram is returned for malformed pitch class histograms.
var ErrInvalidHistogram = errors.New("pitch class histogram needs 12 non-negative values")

// Histogram weights the twelve pitch classes (C = 0). An empty histogram
// leaves pitches unconditioned.
type Histogram []float64

// ParseHistogram reads the "[1, 0, 1, 0, 1, 2, 0, 1, 0, 1, 0, 1]" form.
// An empty string yields an empty histogram.
func ParseHistogram(s string) (Histogram, error) {
	if s == "" {
		return nil, nil
	}
	var values []float64
	if err := yaml.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistogram, err)
	}
	h := Histogram(values)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks length and signs.
func (h Histogram) Validate() error {
	if len(h) == 0 {
		return nil
	}
	if len(h) != 12 {
		return fmt.Errorf("%w: got %d values", ErrInvalidHistogram, len(h))
	}
	for i, v := range h {
		if v < 0 {
			return fmt.Errorf("%w: value %d is %v", ErrInvalidHistogram, i, v)
		}
	}
	return nil
}

// Weight returns the relative weight of pitch class pc in [0, 1].
func (h Histogram) Weight(pc int) float64 {
	if len(h) != 12 {
		return 1
	}
	var peak float64
	for _, v := range h {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return 1
	}
	return h[((pc%12)+12)%12] / peak
}

// String renders the histogram in the form ParseHistogram accepts.
func (h Histogram) String() string {
	if len(h) == 0 {
		return ""
	}
	out := "["
	for i, v := range h {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%g", v)
	}
	return out + "]"
}

// Clone returns an independent copy.
func (h Histogram) Clone() Histogram {
	if h == nil {
		return nil
	}
	return append(Histogram(nil), h...)
}
