package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/config"
	"github.com/olivier-w/sonoscope/internal/upload"
)

// isolate runs the test in an empty directory with an empty home so no
// config file on the machine leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeTone(t *testing.T, dir string, rate, n int) string {
	t.Helper()
	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: rate}, Data: data, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestBindFlagsOverridesDefaults(t *testing.T) {
	isolate(t)
	v := config.NewViper()

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("addr", "", "")
	bindKey(cmd.Flags(), "addr", "server.addr")
	cmd.Flags().String("unbound", "", "")
	if err := cmd.ParseFlags([]string{"--addr", ":9999", "--unbound", "x"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if err := bindFlags(cmd, v); err != nil {
		t.Fatalf("bindFlags() error = %v", err)
	}

	cfg, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("expected flag to win, got %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxClips != 16 {
		t.Fatalf("expected default max clips, got %d", cfg.Server.MaxClips)
	}
}

func TestUnchangedFlagKeepsConfigValue(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "sonoscope.yaml"), []byte("server:\n  addr: \":7000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := config.NewViper()

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("addr", "", "")
	bindKey(cmd.Flags(), "addr", "server.addr")
	if err := bindFlags(cmd, v); err != nil {
		t.Fatalf("bindFlags() error = %v", err)
	}

	cfg, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("expected config file value, got %q", cfg.Server.Addr)
	}
}

func TestAnalyzeCommandYAML(t *testing.T) {
	dir := isolate(t)
	path := writeTone(t, dir, 8000, 4000)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", path, "-o", "yaml"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var res analysis.Result
	if err := yaml.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(res.Times) != 4000 {
		t.Fatalf("expected 4000 samples, got %d", len(res.Times))
	}
	if len(res.TimeBins) == 0 || len(res.Frequencies) == 0 {
		t.Fatal("expected a non-empty spectrogram")
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	dir := isolate(t)
	path := writeTone(t, dir, 8000, 4000)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	res, clipID, err := analysis.DecodeResponse(&out)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if clipID != "" {
		t.Fatalf("expected no clip id, got %q", clipID)
	}
	if res.SampleCount() != 4000 {
		t.Fatalf("expected 4000 samples, got %d", res.SampleCount())
	}
}

func TestAnalyzeCommandRejectsUnknownFormat(t *testing.T) {
	isolate(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", "clip.wav", "-o", "csv"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "csv") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t)
	t.Setenv("SONOSCOPE_PLAYBACK_INDEX_MODE", "sideways")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", "clip.wav"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "index_mode") {
		t.Fatalf("expected index mode error, got %v", err)
	}
}

func TestResolveClips(t *testing.T) {
	dir := isolate(t)
	for _, name := range []string{"a.wav", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "b.flac"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "set.pls"), []byte("[playlist]\nFile1=a.wav\nFile2=gone.wav\nFile3=b.flac\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "empty.m3u"), []byte("gone.wav\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		arg     string
		want    []string
		wantErr string
	}{
		{arg: "a.wav", want: []string{"a.wav"}},
		{arg: "set.pls", want: []string{filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.flac")}},
		{arg: "notes.txt", wantErr: "unsupported format"},
		{arg: "empty.m3u", wantErr: "no playable clips"},
		{arg: ".", wantErr: "directory"},
		{arg: "missing.mp3", wantErr: "no such file"},
	}
	for _, tt := range tests {
		got, err := resolveClips(tt.arg)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("resolveClips(%q) error = %v, want %q", tt.arg, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("resolveClips(%q) error = %v", tt.arg, err)
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Fatalf("resolveClips(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestServeUploadThenSession(t *testing.T) {
	dir := isolate(t)
	cfg, err := config.Load(config.NewViper(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	mux, err := newServeMux(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newServeMux() error = %v", err)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, clipID, err := upload.NewClient(srv.URL, srv.Client()).UploadClip(ctx, writeTone(t, dir, 8000, 4000))
	if err != nil {
		t.Fatalf("UploadClip() error = %v", err)
	}
	if clipID == "" {
		t.Fatal("expected a clip id from the server")
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?clip=" + clipID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var frame struct {
		Type string          `json:"type"`
		X    json.RawMessage `json:"x"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if frame.Type != "oscilogram" {
		t.Fatalf("expected oscilogram frame, got %q", frame.Type)
	}
	var xs []float64
	if err := json.Unmarshal(frame.X, &xs); err != nil {
		t.Fatal(err)
	}
	if len(xs) != res.SampleCount() {
		t.Fatalf("expected full clip of %d samples, got %d", res.SampleCount(), len(xs))
	}
}
