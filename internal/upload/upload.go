// Package upload moves a clip to an analyzer and brings back its analysis
// result, either over HTTP or in process.
package upload

import (
	"context"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

// FormField is the multipart field carrying the clip.
const FormField = "file"

// Uploader turns a clip on disk into a validated analysis result.
type Uploader interface {
	Upload(ctx context.Context, path string) (*analysis.Result, error)
}

// Analyzer is the DSP step behind an upload.
type Analyzer interface {
	Analyze(samples []float64, rate int) (*analysis.Result, error)
}
