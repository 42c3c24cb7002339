// Package session serves browser playback sessions over WebSocket. Each
// connection drives its own tracker against clips kept in a shared Library.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

// Library keeps the most recent analysis results by clip id. When full, the
// oldest clip is dropped.
type Library struct {
	mu    sync.Mutex
	max   int
	order []string
	clips map[string]*analysis.Result
}

func NewLibrary(capacity int) *Library {
	if capacity < 1 {
		capacity = 1
	}
	return &Library{max: capacity, clips: make(map[string]*analysis.Result)}
}

// Add stores r under a fresh id.
func (l *Library) Add(r *analysis.Result) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clips[id] = r
	l.order = append(l.order, id)
	for len(l.order) > l.max {
		delete(l.clips, l.order[0])
		l.order = l.order[1:]
	}
	return id
}

func (l *Library) Get(id string) (*analysis.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.clips[id]
	return r, ok
}

func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clips)
}
