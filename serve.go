package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/analyzer"
	"github.com/olivier-w/sonoscope/internal/config"
	"github.com/olivier-w/sonoscope/internal/logging"
	"github.com/olivier-w/sonoscope/internal/session"
	"github.com/olivier-w/sonoscope/internal/upload"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload endpoint and WebSocket playback sessions",
		Long: `Serve POST /upload, which analyzes a multipart "file" and answers with the
analysis document and a clip id, and GET /ws?clip=<id>, which streams windowed
oscilogram and spectrogram frames as the browser reports playback events.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	fs := cmd.Flags()
	fs.String("addr", "", "listen address (default :5000)")
	bindKey(fs, "addr", "server.addr")
	fs.Int("max-clips", 0, "number of analyzed clips kept for sessions (default 16)")
	bindKey(fs, "max-clips", "server.max_clips")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	log, err := logging.New(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	mux, err := newServeMux(cfg, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("listening", zap.String("addr", cfg.Server.Addr))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServeMux wires the upload handler and the session handler around one
// shared clip library.
func newServeMux(cfg *config.Config, log *zap.Logger) (*http.ServeMux, error) {
	an, err := analyzer.New(cfg.Analyzer.Config)
	if err != nil {
		return nil, err
	}
	lib := session.NewLibrary(cfg.Server.MaxClips)

	up := upload.NewHandler(an,
		upload.WithClipStore(lib),
		upload.WithMaxBytes(cfg.Server.MaxUploadBytes),
		upload.WithLogger(logging.Component(log, "upload")))

	mux := http.NewServeMux()
	if cfg.Server.RequestTimeout > 0 {
		mux.Handle("/upload", http.TimeoutHandler(up, cfg.Server.RequestTimeout, `{"error":"request timed out"}`))
	} else {
		mux.Handle("/upload", up)
	}
	mux.Handle("/ws", session.NewHandler(lib,
		session.WithLogger(logging.Component(log, "session")),
		session.WithResolver(cfg.Playback.Resolver())))
	return mux, nil
}
