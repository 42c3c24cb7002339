package upload

import (
	"context"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/player"
)

// Local decodes and analyzes clips in this process.
type Local struct {
	Analyzer Analyzer
}

func (l Local) Upload(ctx context.Context, path string) (*analysis.Result, error) {
	samples, rate, err := player.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Analyzer.Analyze(samples, rate)
}
