// Package distribution turns simulated outcome series into binned frequency
// distributions and percentile-based risk measures.
package distribution

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/pkg/formulas"
)

// DefaultSmoothingHalfWidth is the Gaussian kernel half-width in bins.
const DefaultSmoothingHalfWidth = 3

// ErrEmptySeries is matched by the validation errors the validating entry
// points return for empty input.
var ErrEmptySeries = errors.New("must contain at least one value")

func emptySeries() error {
	return domain.InvalidBecause("series", ErrEmptySeries)
}

// Bin is one equal-width bucket. Value is the bucket midpoint.
type Bin struct {
	Value     float64 `json:"value" msgpack:"v"`
	Lower     float64 `json:"lower" msgpack:"l"`
	Upper     float64 `json:"upper" msgpack:"u"`
	Count     int     `json:"count" msgpack:"c"`
	Frequency float64 `json:"frequency" msgpack:"f"`
}

// Distribution is a binned view of an outcome series. Unsmoothed frequencies
// sum to one; smoothed ones do not and callers must not rely on it.
type Distribution struct {
	Bins     []Bin   `json:"bins" msgpack:"bins"`
	N        int     `json:"n" msgpack:"n"`
	Min      float64 `json:"min" msgpack:"min"`
	Max      float64 `json:"max" msgpack:"max"`
	BinSize  float64 `json:"bin_size" msgpack:"bin_size"`
	Smoothed bool    `json:"smoothed" msgpack:"smoothed"`
}

// Build bins series into equal-width buckets spanning [min, max]. A series
// whose values are all equal collapses to a single bin; an empty series gives
// an empty distribution. bins below one is treated as one.
func Build(series []float64, bins int) Distribution {
	n := len(series)
	if n == 0 {
		return Distribution{}
	}
	if bins < 1 {
		bins = 1
	}

	lo, hi := formulas.MinMax(series)
	if hi == lo {
		return Distribution{
			Bins: []Bin{{Value: lo, Lower: lo, Upper: hi, Count: n, Frequency: 1}},
			N:    n,
			Min:  lo,
			Max:  hi,
		}
	}

	binSize := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range series {
		idx := int(math.Floor((v - lo) / binSize))
		if idx < 0 {
			idx = 0
		} else if idx > bins-1 {
			idx = bins - 1
		}
		counts[idx]++
	}

	d := Distribution{
		Bins:    make([]Bin, bins),
		N:       n,
		Min:     lo,
		Max:     hi,
		BinSize: binSize,
	}
	for i, c := range counts {
		lower := lo + float64(i)*binSize
		d.Bins[i] = Bin{
			Value:     lower + binSize/2,
			Lower:     lower,
			Upper:     lower + binSize,
			Count:     c,
			Frequency: float64(c) / float64(n),
		}
	}
	return d
}

// ValidateSeries rejects empty series and non-finite values.
func ValidateSeries(series []float64) error {
	if len(series) == 0 {
		return emptySeries()
	}
	for i, v := range series {
		if !formulas.AllFinite(v) {
			return domain.Invalid("series", "value at index %d is not finite", i)
		}
	}
	return nil
}

// BuildValidated is Build behind input checks.
func BuildValidated(series []float64, bins int) (Distribution, error) {
	if err := ValidateSeries(series); err != nil {
		return Distribution{}, err
	}
	if bins <= 0 {
		return Distribution{}, domain.Invalid("bins", "must be positive, got %d", bins)
	}
	return Build(series, bins), nil
}

// Smooth applies a Gaussian kernel over neighbouring bins:
//
//	smoothed[i] = Σ_{j=i-h..i+h} freq[j] · exp(-0.5·((j-i)/h)²)
//
// The result is not renormalised. halfWidth below one returns a copy.
func Smooth(d Distribution, halfWidth int) Distribution {
	out := d
	out.Bins = make([]Bin, len(d.Bins))
	copy(out.Bins, d.Bins)
	if halfWidth < 1 || len(d.Bins) == 0 {
		return out
	}

	h := float64(halfWidth)
	for i := range d.Bins {
		sum := 0.0
		for j := i - halfWidth; j <= i+halfWidth; j++ {
			if j < 0 || j >= len(d.Bins) {
				continue
			}
			offset := float64(j-i) / h
			sum += d.Bins[j].Frequency * math.Exp(-0.5*offset*offset)
		}
		out.Bins[i].Frequency = sum
	}
	out.Smoothed = true
	return out
}

// TotalFrequency sums bin frequencies.
func (d Distribution) TotalFrequency() float64 {
	total := 0.0
	for _, b := range d.Bins {
		total += b.Frequency
	}
	return total
}

// Values returns the bin midpoints.
func (d Distribution) Values() []float64 {
	out := make([]float64, len(d.Bins))
	for i, b := range d.Bins {
		out[i] = b.Value
	}
	return out
}

// VaR walks the cumulative frequency from the lowest bin and returns the
// absolute value of the first bin where it reaches 1-confidence. When rounding
// keeps the cumulative sum below the threshold the last bin is used. An empty
// distribution yields zero.
func VaR(d Distribution, confidence float64) float64 {
	if len(d.Bins) == 0 {
		return 0
	}
	threshold := 1 - confidence
	cumulative := 0.0
	for _, b := range d.Bins {
		cumulative += b.Frequency
		if cumulative >= threshold {
			return math.Abs(b.Value)
		}
	}
	return math.Abs(d.Bins[len(d.Bins)-1].Value)
}

// ValidateConfidence requires a level strictly inside (0, 1).
func ValidateConfidence(confidence float64) error {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return domain.Invalid("confidence", "must be in (0, 1), got %v", confidence)
	}
	return nil
}

// VaRValidated is VaR behind input checks.
func VaRValidated(d Distribution, confidence float64) (float64, error) {
	if len(d.Bins) == 0 {
		return 0, emptySeries()
	}
	if err := ValidateConfidence(confidence); err != nil {
		return 0, err
	}
	return VaR(d, confidence), nil
}

// IsEmptySeries reports whether err matches ErrEmptySeries.
func IsEmptySeries(err error) bool {
	return errors.Is(err, ErrEmptySeries)
}

func (d Distribution) String() string {
	return fmt.Sprintf("distribution(n=%d, bins=%d, range=[%g, %g])", d.N, len(d.Bins), d.Min, d.Max)
}
