// Package analyzer computes the oscillogram and denoised spectrogram of a
// mono clip.
package analyzer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

var (
	// ErrTooShort is returned when the clip is shorter than one segment.
	ErrTooShort = errors.New("analyzer: clip shorter than one spectrogram segment")
	// ErrBadBand is returned when the band-pass cutoffs do not fit the sample rate.
	ErrBadBand = errors.New("analyzer: band-pass cutoffs outside (0, nyquist)")
)

// floor substitutes for non-positive power before taking the logarithm.
const floor = 1e-10

// Config controls the analysis pipeline.
type Config struct {
	LowCut        float64 `mapstructure:"low_cut"`
	HighCut       float64 `mapstructure:"high_cut"`
	Order         int     `mapstructure:"order"`
	SegmentLength int     `mapstructure:"segment_length"`
	Overlap       int     `mapstructure:"overlap"`
	NoiseFrames   int     `mapstructure:"noise_frames"`
	Alpha         float64 `mapstructure:"alpha"`
}

// DefaultConfig mirrors the telephone band analysis the browser front end expects.
func DefaultConfig() Config {
	return Config{
		LowCut:        300,
		HighCut:       3400,
		Order:         5,
		SegmentLength: 256,
		Overlap:       128,
		NoiseFrames:   10,
		Alpha:         4,
	}
}

// Validate rejects settings that cannot produce a spectrogram.
func (c Config) Validate() error {
	switch {
	case c.Order < 1:
		return fmt.Errorf("analyzer: order must be positive, got %d", c.Order)
	case c.SegmentLength < 2:
		return fmt.Errorf("analyzer: segment length must be at least 2, got %d", c.SegmentLength)
	case c.Overlap < 0 || c.Overlap >= c.SegmentLength:
		return fmt.Errorf("analyzer: overlap %d must be in [0, %d)", c.Overlap, c.SegmentLength)
	case c.NoiseFrames < 1:
		return fmt.Errorf("analyzer: noise frames must be positive, got %d", c.NoiseFrames)
	case c.Alpha < 0:
		return fmt.Errorf("analyzer: alpha must not be negative, got %v", c.Alpha)
	case !(c.LowCut > 0) || !(c.HighCut > c.LowCut):
		return fmt.Errorf("%w: low %v high %v", ErrBadBand, c.LowCut, c.HighCut)
	}
	return nil
}

// Analyzer runs the pipeline with a fixed configuration. It holds no
// per-clip state and may be shared between goroutines.
type Analyzer struct {
	cfg Config
}

func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze band-limits and normalizes samples, then derives both views.
// samples is not modified.
func (a *Analyzer) Analyze(samples []float64, rate int) (*analysis.Result, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("analyzer: invalid sample rate %d", rate)
	}
	if len(samples) < a.cfg.SegmentLength {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTooShort, len(samples), a.cfg.SegmentLength)
	}
	nyq := float64(rate) / 2
	if a.cfg.HighCut >= nyq {
		return nil, fmt.Errorf("%w: high cut %v, nyquist %v", ErrBadBand, a.cfg.HighCut, nyq)
	}

	filtered := make([]float64, len(samples))
	copy(filtered, samples)
	bandpass(a.cfg.LowCut, a.cfg.HighCut, float64(rate), a.cfg.Order).apply(filtered)
	normalize(filtered)

	freqs, bins, sxx := spectrogram(filtered, float64(rate), a.cfg.SegmentLength, a.cfg.Overlap)
	subtractNoise(sxx, a.cfg.NoiseFrames, a.cfg.Alpha)
	for _, row := range sxx {
		for i, v := range row {
			row[i] = 10 * math.Log10(v+floor)
		}
	}

	res := &analysis.Result{
		Times:       linspace(0, float64(len(filtered))/float64(rate), len(filtered)),
		Oscilogram:  filtered,
		TimeBins:    bins,
		Frequencies: freqs,
		Spectrogram: sxx,
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	return res, nil
}

// normalize scales x into [-1, 1] by its peak. Silence is left alone.
func normalize(x []float64) {
	peak := floats.Norm(x, math.Inf(1))
	if peak == 0 {
		return
	}
	floats.Scale(1/peak, x)
}

// linspace returns n evenly spaced values over [start, stop], endpoint included.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	switch n {
	case 0:
		return out
	case 1:
		out[0] = start
		return out
	}
	floats.Span(out, start, stop)
	return out
}
