package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/player"
)

// ClipStore keeps results so later sessions can attach to them by id.
type ClipStore interface {
	Add(r *analysis.Result) string
}

// Handler serves POST /upload: one multipart clip in, one analysis document out.
type Handler struct {
	analyzer Analyzer
	clips    ClipStore
	maxBytes int64
	log      *zap.Logger
}

type HandlerOption func(*Handler)

// WithClipStore makes the handler keep each result and report its clip id.
func WithClipStore(s ClipStore) HandlerOption {
	return func(h *Handler) { h.clips = s }
}

func WithMaxBytes(n int64) HandlerOption {
	return func(h *Handler) { h.maxBytes = n }
}

func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.log = l }
}

func NewHandler(a Analyzer, opts ...HandlerOption) *Handler {
	h := &Handler{
		analyzer: a,
		maxBytes: 32 << 20,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.fail(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, hdr, err := r.FormFile(FormField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
			return
		}
		h.fail(w, http.StatusBadRequest, errors.New("No file provided"))
		return
	}
	defer file.Close()

	log := h.log.With(zap.String("file", hdr.Filename), zap.Int64("bytes", hdr.Size))
	samples, rate, err := player.DecodeMono(file, filepath.Ext(hdr.Filename))
	if err != nil {
		log.Warn("decoding upload", zap.Error(err))
		h.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	res, err := h.analyzer.Analyze(samples, rate)
	if err != nil {
		log.Warn("analyzing upload", zap.Error(err))
		h.fail(w, http.StatusUnprocessableEntity, err)
		return
	}

	var clipID string
	if h.clips != nil {
		clipID = h.clips.Add(res)
	}
	log.Info("clip analyzed",
		zap.String("clip_id", clipID),
		zap.Int("samples", res.SampleCount()),
		zap.Int("time_bins", len(res.TimeBins)),
	)
	writeJSON(w, http.StatusOK, analysis.NewResponse(res, clipID))
}

func (h *Handler) fail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, analysis.ErrorResponse(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
