package analyzer

import "math"

// biquad is one second-order section in transposed direct form II.
// First-order sections leave b2 and a2 at zero.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (q *biquad) process(x float64) float64 {
	y := q.b0*x + q.z1
	q.z1 = q.b1*x - q.a1*y + q.z2
	q.z2 = q.b2*x - q.a2*y
	return y
}

type cascade []biquad

// apply filters x in place starting from zero state.
func (c cascade) apply(x []float64) {
	for s := range c {
		sec := &c[s]
		sec.z1, sec.z2 = 0, 0
		for i, v := range x {
			x[i] = sec.process(v)
		}
	}
}

// bandpass builds a Butterworth high-pass at low followed by a Butterworth
// low-pass at high, each of the given order.
func bandpass(low, high, rate float64, order int) cascade {
	c := butterworth(low, rate, order, true)
	return append(c, butterworth(high, rate, order, false)...)
}

// butterworth returns the bilinear-transformed sections of an order-n filter.
func butterworth(cutoff, rate float64, n int, highpass bool) cascade {
	w0 := 2 * math.Pi * cutoff / rate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	var c cascade
	for k := 0; k < n/2; k++ {
		q := 1 / (2 * math.Sin(math.Pi*float64(2*k+1)/float64(2*n)))
		alpha := sinw / (2 * q)
		a0 := 1 + alpha
		var sec biquad
		if highpass {
			sec.b0 = (1 + cosw) / 2 / a0
			sec.b1 = -(1 + cosw) / a0
		} else {
			sec.b0 = (1 - cosw) / 2 / a0
			sec.b1 = (1 - cosw) / a0
		}
		sec.b2 = sec.b0
		sec.a1 = -2 * cosw / a0
		sec.a2 = (1 - alpha) / a0
		c = append(c, sec)
	}
	if n%2 == 1 {
		k := math.Tan(w0 / 2)
		sec := biquad{a1: (k - 1) / (k + 1)}
		if highpass {
			sec.b0 = 1 / (1 + k)
			sec.b1 = -sec.b0
		} else {
			sec.b0 = k / (1 + k)
			sec.b1 = sec.b0
		}
		c = append(c, sec)
	}
	return c
}
