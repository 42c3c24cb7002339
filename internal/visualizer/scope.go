// Package visualizer draws the oscillogram and spectrogram panels as
// terminal text.
package visualizer

// Scope keeps the slices from the last render calls and turns them into two
// text panels. Every render call replaces what was there before.
type Scope struct {
	minFreq float64
	maxFreq float64
	extent  float64
	profile colorProfile

	width      int
	oscHeight  int
	specHeight int

	xs, ys    []float64
	xBins, fs []float64
	z         [][]float64
	oscView   string
	specView  string
}

// NewScope shows frequencies between minFreq and maxFreq in the spectrogram panel.
func NewScope(minFreq, maxFreq float64) *Scope {
	return &Scope{
		minFreq:    minFreq,
		maxFreq:    maxFreq,
		profile:    currentColorProfile(),
		width:      60,
		oscHeight:  6,
		specHeight: 10,
	}
}

// Reset clears both panels and fixes the time span of the panel width,
// normally the clip duration.
func (s *Scope) Reset(extent float64) {
	s.extent = extent
	s.xs, s.ys = nil, nil
	s.xBins, s.fs, s.z = nil, nil, nil
	s.oscView, s.specView = "", ""
}

// Extent returns the time span covered by the panel width.
func (s *Scope) Extent() float64 { return s.extent }

// SetSize changes the panel dimensions and redraws the stored slices.
func (s *Scope) SetSize(width, oscHeight, specHeight int) {
	s.width = max(width, 1)
	s.oscHeight = max(oscHeight, 1)
	s.specHeight = max(specHeight, 1)
	if s.xs != nil {
		s.drawOscillogram()
	}
	if s.z != nil {
		s.drawSpectrogram()
	}
}

func (s *Scope) RenderOscilogram(xs, ys []float64) {
	s.xs, s.ys = xs, ys
	if s.extent <= 0 && len(xs) > 0 {
		s.extent = xs[len(xs)-1]
	}
	s.drawOscillogram()
}

func (s *Scope) RenderSpectrogram(xBins, ys []float64, z [][]float64) {
	s.xBins, s.fs, s.z = xBins, ys, z
	if s.extent <= 0 && len(xBins) > 0 {
		s.extent = xBins[len(xBins)-1]
	}
	s.drawSpectrogram()
}

func (s *Scope) drawOscillogram() {
	s.oscView = drawOscillogram(s.xs, s.ys, s.extent, s.width, s.oscHeight, s.profile)
}

func (s *Scope) drawSpectrogram() {
	s.specView = drawSpectrogram(s.xBins, s.fs, s.z, s.extent, s.minFreq, s.maxFreq, s.width, s.specHeight, s.profile)
}

// Samples reports how many oscillogram samples and spectrogram bins the last
// render calls carried.
func (s *Scope) Samples() (oscilogram, spectrogram int) {
	return len(s.xs), len(s.xBins)
}

func (s *Scope) OscillogramView() string { return s.oscView }

func (s *Scope) SpectrogramView() string { return s.specView }
