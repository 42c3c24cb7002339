package visualizer

import (
	"math"
	"strings"
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

var (
	envelopeQuiet = colorRGB{R: 24, G: 90, B: 110}
	envelopeLoud  = colorRGB{R: 110, G: 235, B: 255}
)

// drawOscillogram draws the min/max envelope of ys against xs. The full width
// spans extent seconds, so a prefix fills only the left part of the panel.
func drawOscillogram(xs, ys []float64, extent float64, cols, height int, p colorProfile) string {
	if cols < 1 || height < 1 {
		return ""
	}
	dotCols, dotRows := cols*2, height*4
	lo := make([]float64, dotCols)
	hi := make([]float64, dotCols)
	seen := make([]bool, dotCols)
	if extent > 0 {
		for i, x := range xs {
			dc := int(x / extent * float64(dotCols))
			if dc < 0 || math.IsNaN(x) {
				dc = 0
			}
			if dc >= dotCols {
				dc = dotCols - 1
			}
			y := ys[i]
			if !seen[dc] {
				lo[dc], hi[dc], seen[dc] = y, y, true
				continue
			}
			lo[dc] = math.Min(lo[dc], y)
			hi[dc] = math.Max(hi[dc], y)
		}
	}

	cells := make([][]uint, height)
	for r := range cells {
		cells[r] = make([]uint, cols)
	}
	peak := make([]float64, cols)
	for dc := range dotCols {
		if !seen[dc] {
			continue
		}
		top, bottom := ampToDot(hi[dc], dotRows), ampToDot(lo[dc], dotRows)
		for dot := top; dot <= bottom; dot++ {
			cells[dot/4][dc/2] |= 1 << brailleBits[dc%2][dot%4]
		}
		peak[dc/2] = math.Max(peak[dc/2], math.Max(math.Abs(hi[dc]), math.Abs(lo[dc])))
	}

	var out strings.Builder
	color := newANSIState(p)
	for r := range height {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			if cells[r][c] != 0 {
				color.set(&out, lerpColor(envelopeQuiet, envelopeLoud, peak[c]))
			}
			out.WriteRune(rune(0x2800 + cells[r][c]))
		}
		color.reset(&out)
	}
	return out.String()
}

// ampToDot maps an amplitude in [-1, 1] to a dot row, 0 at the top.
func ampToDot(amp float64, dotRows int) int {
	if dotRows <= 1 || math.IsNaN(amp) {
		return dotRows / 2
	}
	amp = clamp01((amp + 1) / 2)
	return int(math.Round((1 - amp) * float64(dotRows-1)))
}
