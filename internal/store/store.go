// Package store holds the analysis result of the currently loaded clip.
package store

import (
	"errors"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

// ErrNoData is returned when no result has been loaded yet.
var ErrNoData = errors.New("store: no analysis result loaded")

// Store owns exactly one result at a time. It is not safe for concurrent use;
// the tracker that owns it serializes access.
type Store struct {
	current    *analysis.Result
	generation uint64
}

func New() *Store {
	return &Store{}
}

// Replace validates r and, if it is well formed, discards the previous result.
// An invalid result leaves the store untouched.
func (s *Store) Replace(r *analysis.Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.current = r
	s.generation++
	return nil
}

// Current returns the loaded result or ErrNoData.
func (s *Store) Current() (*analysis.Result, error) {
	if s.current == nil {
		return nil, ErrNoData
	}
	return s.current, nil
}

// Generation counts successful replacements.
func (s *Store) Generation() uint64 {
	return s.generation
}
