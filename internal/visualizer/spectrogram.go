package visualizer

import (
	"math"
	"sort"
	"strings"
)

var heatChars = []rune{' ', '.', ':', '-', '=', '+', '*', '#', '%', '@'}

// drawSpectrogram draws z (rows follow ys) as a heatmap with the highest
// frequency on top. Only frequencies in [minFreq, maxFreq] are shown and
// colours are scaled to the range of the visible cells.
func drawSpectrogram(xBins, ys []float64, z [][]float64, extent, minFreq, maxFreq float64, cols, height int, p colorProfile) string {
	if cols < 1 || height < 1 {
		return ""
	}
	grid := make([][]float64, height)
	for r := range grid {
		grid[r] = make([]float64, cols)
		for c := range grid[r] {
			grid[r][c] = math.NaN()
		}
	}

	lowest, highest := math.Inf(1), math.Inf(-1)
	if extent > 0 && len(xBins) > 0 && len(ys) > 0 && maxFreq > minFreq {
		step := (maxFreq - minFreq) / float64(height)
		for r := range height {
			fi := nearest(ys, maxFreq-(float64(r)+0.5)*step)
			row := z[fi]
			for c := range cols {
				t0 := float64(c) * extent / float64(cols)
				t1 := float64(c+1) * extent / float64(cols)
				v, ok := cellValue(row, xBins, t0, t1)
				if !ok {
					continue
				}
				grid[r][c] = v
				lowest = math.Min(lowest, v)
				highest = math.Max(highest, v)
			}
		}
	}

	span := highest - lowest
	var out strings.Builder
	color := newANSIState(p)
	for r := range height {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			v := grid[r][c]
			if math.IsNaN(v) {
				color.reset(&out)
				out.WriteByte(' ')
				continue
			}
			t := 0.0
			if span > 0 {
				t = (v - lowest) / span
			}
			if p == colorNone {
				out.WriteRune(heatChars[int(t*float64(len(heatChars)-1))])
				continue
			}
			color.set(&out, jetColor(t))
			out.WriteRune('█')
		}
		color.reset(&out)
	}
	return out.String()
}

// cellValue returns the loudest column of row whose bin centre falls in
// [t0, t1). When the cell is narrower than a bin it borrows the nearest bin,
// but never past the last bin that was handed in.
func cellValue(row, xBins []float64, t0, t1 float64) (float64, bool) {
	start := sort.SearchFloat64s(xBins, t0)
	end := sort.SearchFloat64s(xBins, t1)
	if start < end {
		v := row[start]
		for _, x := range row[start+1 : end] {
			v = math.Max(v, x)
		}
		return v, true
	}
	last := len(xBins) - 1
	if t0 > xBins[last] {
		return 0, false
	}
	return row[min(start, last)], true
}

// nearest returns the index of the value in sorted xs closest to v.
func nearest(xs []float64, v float64) int {
	i := sort.SearchFloat64s(xs, v)
	switch {
	case i == 0:
		return 0
	case i == len(xs):
		return len(xs) - 1
	case v-xs[i-1] <= xs[i]-v:
		return i - 1
	}
	return i
}
