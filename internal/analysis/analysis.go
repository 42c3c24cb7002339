// Package analysis defines the analysis result shared by the analyzer, the
// upload path and the tracker, and its JSON wire form.
package analysis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch reports arrays that must be index-aligned but are not.
	ErrLengthMismatch = errors.New("analysis: length mismatch")
	// ErrShape reports a spectrogram that is not frequencies x time bins.
	ErrShape = errors.New("analysis: spectrogram shape mismatch")
	// ErrNotMonotonic reports a time or frequency axis that goes backwards.
	ErrNotMonotonic = errors.New("analysis: axis not monotonic")
)

// Result holds the precomputed time-domain and time-frequency views of one clip.
// It is treated as immutable once validated.
type Result struct {
	Times       []float64   `json:"times" yaml:"times"`
	Oscilogram  []float64   `json:"oscilogram" yaml:"oscilogram"`
	TimeBins    []float64   `json:"time_bins" yaml:"time_bins"`
	Frequencies []float64   `json:"frequencies" yaml:"frequencies"`
	Spectrogram [][]float64 `json:"spectrogram" yaml:"spectrogram"` // [frequency][time bin]
}

// Validate checks the structural invariants between the arrays. A result that
// fails validation must not be windowed at all.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrShape)
	}
	if len(r.Times) != len(r.Oscilogram) {
		return fmt.Errorf("%w: %d times, %d oscilogram samples", ErrLengthMismatch, len(r.Times), len(r.Oscilogram))
	}
	if len(r.Spectrogram) != len(r.Frequencies) {
		return fmt.Errorf("%w: %d rows, %d frequencies", ErrShape, len(r.Spectrogram), len(r.Frequencies))
	}
	for f, row := range r.Spectrogram {
		if len(row) != len(r.TimeBins) {
			return fmt.Errorf("%w: row %d has %d columns, %d time bins", ErrShape, f, len(row), len(r.TimeBins))
		}
	}
	if i := firstDecrease(r.Times, false); i >= 0 {
		return fmt.Errorf("%w: times[%d]", ErrNotMonotonic, i)
	}
	if i := firstDecrease(r.TimeBins, true); i >= 0 {
		return fmt.Errorf("%w: time_bins[%d]", ErrNotMonotonic, i)
	}
	if i := firstDecrease(r.Frequencies, true); i >= 0 {
		return fmt.Errorf("%w: frequencies[%d]", ErrNotMonotonic, i)
	}
	return nil
}

// firstDecrease returns the first index breaking the ordering, or -1.
// NaN never satisfies the ordering.
func firstDecrease(xs []float64, strict bool) int {
	for i := range xs {
		if math.IsNaN(xs[i]) {
			return i
		}
		if i == 0 {
			continue
		}
		if xs[i] < xs[i-1] || (strict && xs[i] == xs[i-1]) {
			return i
		}
	}
	return -1
}

// Duration returns the last timestamp of the sample grid, or 0 for an empty clip.
func (r *Result) Duration() float64 {
	if r == nil || len(r.Times) == 0 {
		return 0
	}
	return r.Times[len(r.Times)-1]
}

// SampleCount returns N, the length of the oscillogram grid.
func (r *Result) SampleCount() int {
	if r == nil {
		return 0
	}
	return len(r.Times)
}
