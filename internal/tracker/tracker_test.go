package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/store"
	"github.com/olivier-w/sonoscope/internal/window"
)

type renderCall struct {
	xs, ys []float64
	xBins  []float64
	freqs  []float64
	z      [][]float64
}

type fakeRenderer struct {
	osc  []renderCall
	spec []renderCall
}

func (f *fakeRenderer) RenderOscilogram(xs, ys []float64) {
	f.osc = append(f.osc, renderCall{xs: xs, ys: ys})
}

func (f *fakeRenderer) RenderSpectrogram(xBins, ys []float64, z [][]float64) {
	f.spec = append(f.spec, renderCall{xBins: xBins, freqs: ys, z: z})
}

func (f *fakeRenderer) last() (renderCall, renderCall) {
	return f.osc[len(f.osc)-1], f.spec[len(f.spec)-1]
}

// clip builds n evenly spaced samples over duration and bins at the middle of
// each second.
func clip(n int, duration float64, marker float64) *analysis.Result {
	r := &analysis.Result{
		Times:       make([]float64, n),
		Oscilogram:  make([]float64, n),
		Frequencies: []float64{100, 200},
	}
	for i := 0; i < n; i++ {
		r.Times[i] = duration * float64(i) / float64(n)
		r.Oscilogram[i] = marker
	}
	for b := 0.5; b < duration; b++ {
		r.TimeBins = append(r.TimeBins, b)
	}
	r.Spectrogram = make([][]float64, len(r.Frequencies))
	for f := range r.Spectrogram {
		r.Spectrogram[f] = make([]float64, len(r.TimeBins))
		for m := range r.Spectrogram[f] {
			r.Spectrogram[f][m] = marker
		}
	}
	return r
}

func newTracker(opts ...Option) (*Tracker, *fakeRenderer) {
	fr := &fakeRenderer{}
	return New(store.New(), fr, opts...), fr
}

func TestPlaybackBeforeUploadIsNoData(t *testing.T) {
	tr, fr := newTracker()
	if err := tr.Dispatch(PlaybackBegan{}); !errors.Is(err, store.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err := tr.Dispatch(PositionChanged{CurrentTime: 1}); !errors.Is(err, store.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(fr.osc) != 0 || len(fr.spec) != 0 {
		t.Fatal("expected no renders before an upload")
	}
	if tr.State() != Idle {
		t.Fatalf("expected idle, got %v", tr.State())
	}
}

func TestUploadRendersFullRange(t *testing.T) {
	tr, fr := newTracker()
	res := clip(5, 4, 1)
	if err := tr.Dispatch(UploadCompleted{Result: res}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if tr.State() != Ready {
		t.Fatalf("expected ready, got %v", tr.State())
	}
	if len(fr.osc) != 1 || len(fr.spec) != 1 {
		t.Fatalf("expected one full render, got %d/%d", len(fr.osc), len(fr.spec))
	}
	osc, spec := fr.last()
	if len(osc.xs) != 5 || len(osc.ys) != 5 {
		t.Fatalf("expected full oscillogram, got %d", len(osc.xs))
	}
	if len(spec.xBins) != 4 || len(spec.z[0]) != 4 || len(spec.freqs) != 2 {
		t.Fatalf("expected full spectrogram, got %d bins", len(spec.xBins))
	}
}

func TestPositionInReadyDoesNotRender(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	if err := tr.Dispatch(PositionChanged{CurrentTime: 2}); err != nil {
		t.Fatalf("position: %v", err)
	}
	if len(fr.osc) != 1 {
		t.Fatalf("expected the full-range render only, got %d renders", len(fr.osc))
	}
	if tr.Position().CurrentTime != 2 {
		t.Fatalf("expected position recorded, got %v", tr.Position())
	}
}

func TestPlayingRendersPrefixes(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	_ = tr.Dispatch(PlaybackBegan{})
	if err := tr.Dispatch(PositionChanged{CurrentTime: 2}); err != nil {
		t.Fatalf("position: %v", err)
	}
	osc, spec := fr.last()
	if len(osc.xs) != 2 || len(osc.ys) != 2 {
		t.Fatalf("expected oscillogram prefix 2, got %d", len(osc.xs))
	}
	if len(spec.xBins) != 2 {
		t.Fatalf("expected spectrogram prefix 2, got %d", len(spec.xBins))
	}
	for f, row := range spec.z {
		if len(row) != 2 {
			t.Fatalf("row %d: expected 2 columns, got %d", f, len(row))
		}
	}
	if len(spec.freqs) != 2 {
		t.Fatalf("expected every frequency row, got %d", len(spec.freqs))
	}
	if tr.Window() != (window.Window{Oscilogram: 2, Spectrogram: 2}) {
		t.Fatalf("unexpected window %+v", tr.Window())
	}
}

func TestSamePositionTwiceIsIdentical(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(100, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 1.37})
	a := tr.Window()
	osc1, _ := fr.last()
	_ = tr.Dispatch(PositionChanged{CurrentTime: 1.37})
	osc2, _ := fr.last()
	if tr.Window() != a || len(osc1.xs) != len(osc2.xs) {
		t.Fatalf("expected identical windows, got %+v then %+v", a, tr.Window())
	}
}

func TestPlaybackBeganResetsToZero(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 3.9})
	if err := tr.Dispatch(PlaybackBegan{}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	osc, spec := fr.last()
	if len(osc.xs) != 0 || len(spec.xBins) != 0 {
		t.Fatalf("expected empty prefixes after restart, got %d/%d", len(osc.xs), len(spec.xBins))
	}
	if tr.Position().CurrentTime != 0 {
		t.Fatalf("expected position 0, got %v", tr.Position().CurrentTime)
	}
}

func TestNewUploadSlicesOnlyNewArrays(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(10, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 3})

	if err := tr.Dispatch(UploadCompleted{Result: clip(8, 8, 2)}); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if tr.State() != Ready {
		t.Fatalf("expected ready after new upload, got %v", tr.State())
	}
	if tr.Position() != (Position{}) {
		t.Fatalf("expected position reset, got %+v", tr.Position())
	}
	_ = tr.Dispatch(MetadataLoaded{Duration: 8})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 4})

	osc, spec := fr.last()
	if len(osc.xs) != 4 {
		t.Fatalf("expected prefix 4 of the new clip, got %d", len(osc.xs))
	}
	for _, y := range osc.ys {
		if y != 2 {
			t.Fatalf("expected only new samples, got %v", y)
		}
	}
	for _, row := range spec.z {
		for _, v := range row {
			if v != 2 {
				t.Fatalf("expected only new spectrogram values, got %v", v)
			}
		}
	}
}

func TestInvalidUploadKeepsPreviousState(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tr, fr := newTracker(WithLogger(zap.New(core)))
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(MetadataLoaded{Duration: 4})
	_ = tr.Dispatch(PlaybackBegan{})

	bad := clip(5, 4, 9)
	bad.Spectrogram[1] = bad.Spectrogram[1][:1]
	err := tr.Dispatch(UploadCompleted{Result: bad})
	if !errors.Is(err, analysis.ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if tr.State() != Playing {
		t.Fatalf("expected state unchanged, got %v", tr.State())
	}
	if len(fr.osc) != 2 {
		t.Fatalf("expected no render for a rejected result, got %d renders", len(fr.osc))
	}
	if logs.FilterMessage("rejecting analysis result").Len() != 1 {
		t.Fatal("expected rejection to be logged")
	}
}

func TestUploadFailedIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tr, fr := newTracker(WithLogger(zap.New(core)))
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	if err := tr.Dispatch(UploadFailed{Err: errors.New("boom")}); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if tr.State() != Ready || len(fr.osc) != 1 {
		t.Fatalf("expected nothing to change, state %v renders %d", tr.State(), len(fr.osc))
	}
	entries := logs.FilterMessage("upload failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error log, got %v", entries)
	}
}

func TestUnknownDurationResolvesOscilogramToZero(t *testing.T) {
	tr, fr := newTracker()
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 2})
	osc, spec := fr.last()
	if len(osc.xs) != 0 {
		t.Fatalf("expected 0 without duration, got %d", len(osc.xs))
	}
	if len(spec.xBins) != 2 {
		t.Fatalf("expected spectrogram to still follow time, got %d", len(spec.xBins))
	}
}

func TestTimestampResolverOption(t *testing.T) {
	tr, fr := newTracker(WithResolver(window.Resolver{Mode: window.Timestamp}))
	_ = tr.Dispatch(UploadCompleted{Result: clip(5, 4, 1)})
	_ = tr.Dispatch(PlaybackBegan{})
	_ = tr.Dispatch(PositionChanged{CurrentTime: 2})
	osc, _ := fr.last()
	if len(osc.xs) != 3 {
		t.Fatalf("expected timestamp prefix 3, got %d", len(osc.xs))
	}
}

func TestRunProcessesInOrder(t *testing.T) {
	tr, fr := newTracker()
	events := make(chan Event, 8)
	events <- UploadCompleted{Result: clip(5, 4, 1)}
	events <- MetadataLoaded{Duration: 4}
	events <- PositionChanged{CurrentTime: 1}
	events <- PlaybackBegan{}
	events <- PositionChanged{CurrentTime: 3}
	events <- nil
	close(events)

	if err := tr.Run(context.Background(), events); err != nil {
		t.Fatalf("run: %v", err)
	}
	if tr.State() != Playing {
		t.Fatalf("expected playing, got %v", tr.State())
	}
	osc, _ := fr.last()
	if len(osc.xs) != 3 {
		t.Fatalf("expected final prefix 3, got %d", len(osc.xs))
	}
	if len(fr.osc) != 3 {
		t.Fatalf("expected 3 renders, got %d", len(fr.osc))
	}
}

func TestRunStopsOnContext(t *testing.T) {
	tr, _ := newTracker()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx, make(chan Event)) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

// appendingRenderer grows every slice it receives, as an adapter building
// its own series in place might.
type appendingRenderer struct{}

func (appendingRenderer) RenderOscilogram(xs, ys []float64) {
	_ = append(xs, -1)
	_ = append(ys, -1)
}

func (appendingRenderer) RenderSpectrogram(xBins, ys []float64, z [][]float64) {
	_ = append(xBins, -1)
	_ = append(ys, -1)
	for _, row := range z {
		_ = append(row, -1)
	}
}

func TestRendererAppendsDoNotReachStoredResult(t *testing.T) {
	st := store.New()
	tr := New(st, appendingRenderer{})
	res := clip(8, 4, 0.25)

	for _, ev := range []Event{
		UploadCompleted{Result: res},
		MetadataLoaded{Duration: 4},
		PlaybackBegan{},
		PositionChanged{CurrentTime: 2},
	} {
		if err := tr.Dispatch(ev); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev.Name(), err)
		}
	}

	cur, err := st.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	for i, v := range cur.Oscilogram {
		if v != 0.25 {
			t.Fatalf("expected oscilogram[%d] untouched, got %v", i, v)
		}
	}
	if cur.Times[4] != 2 {
		t.Fatalf("expected times[4] = 2, got %v", cur.Times[4])
	}
	if cur.TimeBins[2] != 2.5 {
		t.Fatalf("expected time_bins[2] = 2.5, got %v", cur.TimeBins[2])
	}
	for f, row := range cur.Spectrogram {
		if row[2] != 0.25 {
			t.Fatalf("expected spectrogram[%d][2] untouched, got %v", f, row[2])
		}
	}
	if err := cur.Validate(); err != nil {
		t.Fatalf("expected stored result still valid, got %v", err)
	}
}

func TestRunReportsErrorsInOrder(t *testing.T) {
	var got []string
	tr, _ := newTracker(WithErrorHandler(func(ev Event, err error) {
		got = append(got, eventName(ev)+": "+err.Error())
	}))

	events := make(chan Event, 8)
	events <- PlaybackBegan{}
	events <- UploadFailed{Err: errors.New("boom")}
	events <- UploadCompleted{Result: clip(5, 4, 1)}
	events <- PlaybackBegan{}
	events <- UploadFailed{}
	close(events)

	if err := tr.Run(context.Background(), events); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reported errors, got %d: %v", len(got), got)
	}
	if got[0] != "playback_began: "+store.ErrNoData.Error() {
		t.Fatalf("expected no-data report first, got %q", got[0])
	}
	if got[1] != "upload_failed: boom" {
		t.Fatalf("expected upload failure second, got %q", got[1])
	}
}
