package analyzer

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const tukeyAlpha = 0.25

// spectrogram computes a one-sided power spectral density per segment.
// The result is indexed [frequency][segment].
func spectrogram(x []float64, rate float64, n, overlap int) (freqs, bins []float64, sxx [][]float64) {
	hop := n - overlap
	frames := (len(x) - overlap) / hop

	win := tukey(n, tukeyAlpha)
	scale := 1 / (rate * floats.Dot(win, win))

	nf := n/2 + 1
	freqs = make([]float64, nf)
	for k := range freqs {
		freqs[k] = float64(k) * rate / float64(n)
	}
	bins = make([]float64, frames)
	sxx = make([][]float64, nf)
	for k := range sxx {
		sxx[k] = make([]float64, frames)
	}

	fft := fourier.NewFFT(n)
	seg := make([]float64, n)
	coeffs := make([]complex128, nf)
	for m := 0; m < frames; m++ {
		start := m * hop
		copy(seg, x[start:start+n])
		mean := stat.Mean(seg, nil)
		for i := range seg {
			seg[i] = (seg[i] - mean) * win[i]
		}
		coeffs = fft.Coefficients(coeffs, seg)
		for k, c := range coeffs {
			p := (real(c)*real(c) + imag(c)*imag(c)) * scale
			if k != 0 && !(n%2 == 0 && k == nf-1) {
				p *= 2
			}
			sxx[k][m] = p
		}
		bins[m] = (float64(start) + float64(n)/2) / rate
	}
	return freqs, bins, sxx
}

// subtractNoise removes alpha times the mean of the leading columns from every
// row. Results below zero become the log floor.
func subtractNoise(sxx [][]float64, noiseFrames int, alpha float64) {
	for _, row := range sxx {
		lead := min(noiseFrames, len(row))
		if lead == 0 {
			continue
		}
		noise := alpha * stat.Mean(row[:lead], nil)
		for i := range row {
			row[i] -= noise
			if row[i] < 0 {
				row[i] = floor
			}
		}
	}
}

// tukey returns the periodic (DFT-even) Tukey window of length n.
func tukey(n int, alpha float64) []float64 {
	sym := symmetricTukey(n+1, alpha)
	return sym[:n]
}

func symmetricTukey(m int, alpha float64) []float64 {
	w := make([]float64, m)
	if m == 1 {
		w[0] = 1
		return w
	}
	width := int(math.Floor(alpha * float64(m-1) / 2))
	den := alpha * float64(m-1)
	for i := range w {
		fi := float64(i)
		switch {
		case i <= width:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-1+2*fi/den)))
		case i >= m-width-1:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-2/alpha+1+2*fi/den)))
		default:
			w[i] = 1
		}
	}
	return w
}
