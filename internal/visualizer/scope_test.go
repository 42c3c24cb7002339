package visualizer

import (
	"strings"
	"testing"
)

func plainScope(width, oscHeight, specHeight int) *Scope {
	s := NewScope(100, 4000)
	s.profile = colorNone
	s.SetSize(width, oscHeight, specHeight)
	return s
}

func ramp(n int, duration float64) (xs, ys []float64) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		xs[i] = duration * float64(i) / float64(n)
		if i%2 == 0 {
			ys[i] = 0.9
		} else {
			ys[i] = -0.9
		}
	}
	return xs, ys
}

// filledColumns reports which columns hold at least one non-blank cell.
func filledColumns(view string, blank rune) []bool {
	lines := strings.Split(view, "\n")
	var cols []bool
	for _, line := range lines {
		for c, r := range []rune(line) {
			if c >= len(cols) {
				cols = append(cols, false)
			}
			if r != blank {
				cols[c] = true
			}
		}
	}
	return cols
}

func TestScopeEmptyBeforeRender(t *testing.T) {
	s := plainScope(10, 2, 2)
	if s.OscillogramView() != "" || s.SpectrogramView() != "" {
		t.Fatal("expected empty panels before any render")
	}
}

func TestOscillogramFullRangeFillsWidth(t *testing.T) {
	s := plainScope(20, 3, 2)
	s.Reset(4)
	xs, ys := ramp(400, 4)
	s.RenderOscilogram(xs, ys)

	lines := strings.Split(s.OscillogramView(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for c, filled := range filledColumns(s.OscillogramView(), '\u2800') {
		if !filled {
			t.Fatalf("expected column %d to be drawn", c)
		}
	}
}

func TestOscillogramPrefixFillsLeftPart(t *testing.T) {
	s := plainScope(20, 3, 2)
	s.Reset(4)
	xs, ys := ramp(400, 4)
	s.RenderOscilogram(xs[:200], ys[:200])

	cols := filledColumns(s.OscillogramView(), '\u2800')
	if len(cols) != 20 {
		t.Fatalf("expected 20 columns, got %d", len(cols))
	}
	for c := 0; c < 10; c++ {
		if !cols[c] {
			t.Fatalf("expected heard column %d to be drawn", c)
		}
	}
	for c := 10; c < 20; c++ {
		if cols[c] {
			t.Fatalf("expected unheard column %d to be blank", c)
		}
	}
	if o, _ := s.Samples(); o != 200 {
		t.Fatalf("expected 200 samples recorded, got %d", o)
	}
}

func TestOscillogramEmptyPrefixIsBlank(t *testing.T) {
	s := plainScope(8, 2, 2)
	s.Reset(4)
	s.RenderOscilogram([]float64{}, []float64{})
	for c, filled := range filledColumns(s.OscillogramView(), '\u2800') {
		if filled {
			t.Fatalf("expected blank column %d", c)
		}
	}
}

func TestOscillogramRenderIsIdempotent(t *testing.T) {
	s := plainScope(16, 4, 2)
	s.Reset(2)
	xs, ys := ramp(100, 2)
	s.RenderOscilogram(xs[:40], ys[:40])
	first := s.OscillogramView()
	s.RenderOscilogram(xs[:40], ys[:40])
	if s.OscillogramView() != first {
		t.Fatal("expected identical output for identical input")
	}
}

func TestSpectrogramHotBinIsBrightest(t *testing.T) {
	s := plainScope(4, 2, 2)
	s.Reset(4)
	xBins := []float64{0.5, 1.5, 2.5, 3.5}
	freqs := []float64{0, 1000, 2000, 3000, 4000}
	z := make([][]float64, len(freqs))
	for f := range z {
		z[f] = []float64{-100, -100, -100, -100}
	}
	z[3][1] = -10 // 3 kHz, second second

	s.RenderSpectrogram(xBins, freqs, z)
	lines := strings.Split(s.SpectrogramView(), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	top := []rune(lines[0])
	if top[1] != '@' {
		t.Fatalf("expected hottest cell at top row column 1, got %q", string(top))
	}
	if top[0] != ' ' || top[2] != ' ' {
		t.Fatalf("expected quiet cells elsewhere, got %q", string(top))
	}
}

func TestSpectrogramPrefixLeavesUnheardBlank(t *testing.T) {
	s := plainScope(4, 2, 1)
	s.Reset(4)
	freqs := []float64{0, 2000, 4000}
	z := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	s.RenderSpectrogram([]float64{0.5, 1.5}, freqs, z)
	line := []rune(s.SpectrogramView())
	if len(line) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(line))
	}
	if line[1] != '@' {
		t.Fatalf("expected the later heard bin to be the brightest, got %q", string(line))
	}
	if line[2] != ' ' || line[3] != ' ' {
		t.Fatalf("expected unheard cells to be blank, got %q", string(line))
	}
}

func TestSetSizeRedrawsStoredSlices(t *testing.T) {
	s := plainScope(10, 2, 2)
	s.Reset(1)
	xs, ys := ramp(50, 1)
	s.RenderOscilogram(xs, ys)
	s.SetSize(30, 2, 2)
	line := strings.Split(s.OscillogramView(), "\n")[0]
	if n := len([]rune(line)); n != 30 {
		t.Fatalf("expected redraw at width 30, got %d", n)
	}
}

func TestResetClearsPanels(t *testing.T) {
	s := plainScope(10, 2, 2)
	xs, ys := ramp(10, 1)
	s.RenderOscilogram(xs, ys)
	s.Reset(3)
	if s.OscillogramView() != "" || s.Extent() != 3 {
		t.Fatal("expected reset to clear the panels and set the extent")
	}
}

func TestColoredOutputUsesEscapes(t *testing.T) {
	s := NewScope(100, 4000)
	s.profile = colorTrueColor
	s.SetSize(4, 1, 1)
	s.Reset(1)
	s.RenderOscilogram([]float64{0, 0.5}, []float64{0.5, -0.5})
	if !strings.Contains(s.OscillogramView(), "\x1b[38;2;") {
		t.Fatalf("expected truecolor escapes, got %q", s.OscillogramView())
	}
}
