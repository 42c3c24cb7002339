// Package window maps a playback time onto prefix lengths of the two
// precomputed analysis grids.
package window

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

// Mode selects how the oscillogram prefix is derived.
type Mode uint8

const (
	// Proportional scales currentTime/duration onto the sample count and
	// assumes evenly spaced samples.
	Proportional Mode = iota
	// Timestamp counts the samples whose timestamp is not after currentTime.
	Timestamp
)

func (m Mode) String() string {
	switch m {
	case Proportional:
		return "proportional"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proportional":
		return Proportional, nil
	case "timestamp":
		return Timestamp, nil
	}
	return Proportional, fmt.Errorf("unknown index mode %q (want proportional or timestamp)", s)
}

// Window is the pair of prefix lengths exposed to a renderer.
type Window struct {
	Oscilogram  int
	Spectrogram int
}

// OscilogramPrefix returns floor(currentTime/duration*sampleCount) clamped to
// [0, sampleCount]. An unknown or non-positive duration yields 0.
func OscilogramPrefix(currentTime, duration float64, sampleCount int) int {
	if sampleCount <= 0 || !(duration > 0) || math.IsInf(duration, 0) || math.IsNaN(currentTime) {
		return 0
	}
	idx := math.Floor(currentTime / duration * float64(sampleCount))
	if idx <= 0 {
		return 0
	}
	if idx >= float64(sampleCount) {
		return sampleCount
	}
	return int(idx)
}

// TimestampPrefix returns the number of leading samples with times[i] <= currentTime.
// times must be non-decreasing.
func TimestampPrefix(currentTime float64, times []float64) int {
	if math.IsNaN(currentTime) {
		return 0
	}
	return sort.Search(len(times), func(i int) bool { return times[i] > currentTime })
}

// SpectrogramPrefix returns the smallest i with timeBins[i] > currentTime, or
// len(timeBins) when currentTime is at or past the last bin.
func SpectrogramPrefix(currentTime float64, timeBins []float64) int {
	if math.IsNaN(currentTime) {
		return 0
	}
	return sort.Search(len(timeBins), func(i int) bool { return timeBins[i] > currentTime })
}

// Resolver computes both prefixes for a result.
type Resolver struct {
	Mode Mode
}

// Resolve returns the window for currentTime. A nil result resolves to the zero window.
func (r Resolver) Resolve(res *analysis.Result, currentTime, duration float64) Window {
	if res == nil {
		return Window{}
	}
	w := Window{Spectrogram: SpectrogramPrefix(currentTime, res.TimeBins)}
	switch r.Mode {
	case Timestamp:
		w.Oscilogram = TimestampPrefix(currentTime, res.Times)
	default:
		w.Oscilogram = OscilogramPrefix(currentTime, duration, res.SampleCount())
	}
	return w
}

// Full returns the window covering both grids entirely.
func Full(res *analysis.Result) Window {
	if res == nil {
		return Window{}
	}
	return Window{Oscilogram: len(res.Times), Spectrogram: len(res.TimeBins)}
}
