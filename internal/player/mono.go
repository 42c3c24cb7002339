package player

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DecodeMono decodes a clip and returns its first channel scaled to [-1, 1)
// together with the sample rate.
func DecodeMono(rs io.ReadSeeker, ext string) ([]float64, int, error) {
	p, err := decode(rs, ext)
	if err != nil {
		return nil, 0, err
	}
	return p.firstChannel(), p.rate, nil
}

// ReadMono is DecodeMono for a file on disk.
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	samples, rate, err := DecodeMono(f, filepath.Ext(path))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return samples, rate, nil
}

func (p *pcm) firstChannel() []float64 {
	out := make([]float64, p.frames())
	for i := range out {
		out[i] = float64(p.samples[i*p.channels]) / 32768
	}
	return out
}
