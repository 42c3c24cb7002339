// Package tracker turns playback lifecycle events into windowed render calls.
//
// A Tracker is a small state machine (Idle, Ready, Playing). Every event is
// processed to completion before the next one; callers either invoke Dispatch
// from a single goroutine or hand a channel to Run.
package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/store"
	"github.com/olivier-w/sonoscope/internal/window"
)

// Renderer redraws the two panels from scratch on every call.
type Renderer interface {
	RenderOscilogram(xs, ys []float64)
	RenderSpectrogram(xBins, ys []float64, z [][]float64)
}

// State of the tracker for the loaded clip.
type State uint8

const (
	Idle State = iota
	Ready
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Position is the last playback position reported by the playback collaborator.
// A zero Duration means the duration is not known yet.
type Position struct {
	CurrentTime float64
	Duration    float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for transitions and rejected events.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithErrorHandler receives, from Run, every rejected event with its error
// and every UploadFailed with the upload error. It runs on the Run goroutine,
// in event order.
func WithErrorHandler(h func(ev Event, err error)) Option {
	return func(t *Tracker) { t.onError = h }
}

// WithResolver replaces the default proportional resolver.
func WithResolver(r window.Resolver) Option {
	return func(t *Tracker) { t.resolver = r }
}

type Tracker struct {
	store    *store.Store
	renderer Renderer
	resolver window.Resolver
	log      *zap.Logger
	onError  func(Event, error)

	state State
	pos   Position
	win   window.Window
}

func New(st *store.Store, r Renderer, opts ...Option) *Tracker {
	t := &Tracker{
		store:    st,
		renderer: r,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) State() State { return t.state }

func (t *Tracker) Position() Position { return t.pos }

// Window returns the prefixes used by the last render.
func (t *Tracker) Window() window.Window { return t.win }

// Dispatch processes one event.
func (t *Tracker) Dispatch(ev Event) error {
	switch e := ev.(type) {
	case UploadCompleted:
		return t.uploadCompleted(e)
	case UploadFailed:
		t.log.Error("upload failed", zap.Error(e.Err), zap.Stringer("state", t.state))
		return nil
	case MetadataLoaded:
		t.pos.Duration = e.Duration
		t.log.Debug("metadata loaded", zap.Float64("duration", e.Duration))
		return nil
	case PlaybackBegan:
		return t.playbackBegan()
	case PositionChanged:
		return t.positionChanged(e)
	case nil:
		return fmt.Errorf("tracker: nil event")
	default:
		return fmt.Errorf("tracker: unknown event %T", ev)
	}
}

// Run dispatches events from the channel in order until it is closed or ctx
// is done. Event errors are logged and do not stop the loop.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := t.Dispatch(ev); err != nil {
				t.log.Warn("event rejected", zap.String("event", eventName(ev)), zap.Error(err))
				t.report(ev, err)
			} else if failed, ok := ev.(UploadFailed); ok {
				t.report(ev, failed.Err)
			}
		}
	}
}

func (t *Tracker) report(ev Event, err error) {
	if t.onError != nil && err != nil {
		t.onError(ev, err)
	}
}

func (t *Tracker) uploadCompleted(e UploadCompleted) error {
	if err := t.store.Replace(e.Result); err != nil {
		t.log.Error("rejecting analysis result", zap.Error(err), zap.Stringer("state", t.state))
		return fmt.Errorf("tracker: %w", err)
	}
	if t.state != Idle {
		t.transition(Idle)
	}
	t.transition(Ready)
	t.pos = Position{}
	t.win = window.Full(e.Result)
	t.render(e.Result, t.win)
	return nil
}

func (t *Tracker) playbackBegan() error {
	res, err := t.store.Current()
	if err != nil {
		return err
	}
	t.pos.CurrentTime = 0
	if t.state != Playing {
		t.transition(Playing)
	}
	t.win = t.resolver.Resolve(res, 0, t.pos.Duration)
	t.render(res, t.win)
	return nil
}

func (t *Tracker) positionChanged(e PositionChanged) error {
	res, err := t.store.Current()
	if err != nil {
		return err
	}
	t.pos.CurrentTime = e.CurrentTime
	if t.state != Playing {
		return nil
	}
	t.win = t.resolver.Resolve(res, t.pos.CurrentTime, t.pos.Duration)
	t.render(res, t.win)
	return nil
}

func (t *Tracker) transition(to State) {
	t.log.Debug("state transition", zap.Stringer("from", t.state), zap.Stringer("to", to))
	t.state = to
}

// render hands prefixes of every array to the renderer. Capacity is capped at
// the prefix length so an append by the renderer cannot reach the stored result.
func (t *Tracker) render(res *analysis.Result, w window.Window) {
	if t.renderer == nil {
		return
	}
	o, s := w.Oscilogram, w.Spectrogram
	t.renderer.RenderOscilogram(res.Times[:o:o], res.Oscilogram[:o:o])
	z := make([][]float64, len(res.Spectrogram))
	for f, row := range res.Spectrogram {
		z[f] = row[:s:s]
	}
	n := len(res.Frequencies)
	t.renderer.RenderSpectrogram(res.TimeBins[:s:s], res.Frequencies[:n:n], z)
}
