package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/tracker"
)

const writeWait = 10 * time.Second

// inbound is a playback or control message from the browser.
type inbound struct {
	Type        string  `json:"type"`
	Duration    float64 `json:"duration,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Clip        string  `json:"clip,omitempty"`
}

type oscilogramFrame struct {
	Type string    `json:"type"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

type spectrogramFrame struct {
	Type string      `json:"type"`
	X    []float64   `json:"x"`
	Y    []float64   `json:"y"`
	Z    [][]float64 `json:"z"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// jsonConn is the part of *websocket.Conn used for writing frames.
type jsonConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
}

// renderer implements tracker.Renderer by sending each redraw as a JSON frame.
// Writes are serialized; a failed write is logged and the frame dropped.
type renderer struct {
	mu   sync.Mutex
	conn jsonConn
	log  *zap.Logger
}

var _ tracker.Renderer = (*renderer)(nil)

func (r *renderer) RenderOscilogram(xs, ys []float64) {
	r.send(oscilogramFrame{Type: "oscilogram", X: nonNil(xs), Y: nonNil(ys)})
}

func (r *renderer) RenderSpectrogram(xBins, ys []float64, z [][]float64) {
	rows := make([][]float64, len(z))
	for i, row := range z {
		rows[i] = nonNil(row)
	}
	r.send(spectrogramFrame{Type: "spectrogram", X: nonNil(xBins), Y: nonNil(ys), Z: rows})
}

func (r *renderer) sendError(err error) {
	r.send(errorFrame{Type: "error", Error: err.Error()})
}

// reportError runs on the tracker goroutine, so error frames keep their place
// among render frames.
func (r *renderer) reportError(ev tracker.Event, err error) {
	if bad, ok := ev.(invalidMessage); ok {
		err = bad.err
	}
	r.sendError(err)
}

// invalidMessage queues a malformed browser message behind the events before
// it. The tracker rejects it like any unknown event.
type invalidMessage struct {
	err error
}

func (invalidMessage) Name() string { return "invalid_message" }

func (r *renderer) send(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := r.conn.WriteJSON(v); err != nil {
		r.log.Debug("dropping frame", zap.Error(err))
	}
}

// nonNil keeps empty prefixes as [] rather than null on the wire.
func nonNil(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}

// event converts a browser message into a tracker event.
func (m inbound) event(lib *Library) (tracker.Event, error) {
	switch m.Type {
	case "loadedmetadata":
		return tracker.MetadataLoaded{Duration: m.Duration}, nil
	case "play":
		return tracker.PlaybackBegan{}, nil
	case "timeupdate":
		return tracker.PositionChanged{CurrentTime: m.CurrentTime}, nil
	case "load":
		return loadEvent(lib, m.Clip), nil
	}
	return nil, fmt.Errorf("unknown message type %q", m.Type)
}

func loadEvent(lib *Library, id string) tracker.Event {
	res, ok := lib.Get(id)
	if !ok {
		return tracker.UploadFailed{Err: fmt.Errorf("unknown clip %q", id)}
	}
	return tracker.UploadCompleted{Result: res}
}
