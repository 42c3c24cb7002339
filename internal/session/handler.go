package session

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/store"
	"github.com/olivier-w/sonoscope/internal/tracker"
	"github.com/olivier-w/sonoscope/internal/window"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves GET /ws?clip=<id>.
type Handler struct {
	lib      *Library
	resolver window.Resolver
	log      *zap.Logger
	queue    int
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func WithResolver(r window.Resolver) Option {
	return func(h *Handler) { h.resolver = r }
}

func NewHandler(lib *Library, opts ...Option) *Handler {
	h := &Handler{lib: lib, log: zap.NewNop(), queue: 64}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	clip := r.URL.Query().Get("clip")
	log := h.log.With(zap.String("remote", r.RemoteAddr), zap.String("clip_id", clip))
	log.Info("session opened")
	defer log.Info("session closed")

	out := &renderer{conn: conn, log: log}
	tr := tracker.New(store.New(), out,
		tracker.WithLogger(log),
		tracker.WithResolver(h.resolver),
		tracker.WithErrorHandler(out.reportError))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events := make(chan tracker.Event, h.queue)
	runDone := make(chan error, 1)
	go func() { runDone <- tr.Run(ctx, events) }()

	if clip != "" {
		events <- loadEvent(h.lib, clip)
	}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read", zap.Error(err))
			}
			break
		}
		ev, err := msg.event(h.lib)
		if err != nil {
			ev = invalidMessage{err: err}
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	close(events)
	<-runDone
}
