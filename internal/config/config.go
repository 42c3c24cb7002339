// Package config loads sonoscope settings from defaults, an optional YAML
// file, SONOSCOPE_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/olivier-w/sonoscope/internal/analyzer"
	"github.com/olivier-w/sonoscope/internal/window"
)

const (
	appName   = "sonoscope"
	envPrefix = "SONOSCOPE"
)

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Render   RenderConfig   `mapstructure:"render"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives the terminal player's logs; stdout belongs to the UI.
	File string `mapstructure:"file"`
}

// AnalyzerConfig selects a remote analyzer or tunes the in-process one.
type AnalyzerConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	analyzer.Config `mapstructure:",squash"`
}

type PlaybackConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	IndexMode    string        `mapstructure:"index_mode"`
}

type RenderConfig struct {
	MinFrequency float64 `mapstructure:"min_frequency"`
	MaxFrequency float64 `mapstructure:"max_frequency"`
	OscHeight    int     `mapstructure:"osc_height"`
	SpecHeight   int     `mapstructure:"spec_height"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	MaxClips       int           `mapstructure:"max_clips"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NewViper returns a viper instance with defaults and environment lookup set up.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(home, ".local", "state", appName, appName+".log"))

	a := analyzer.DefaultConfig()
	v.SetDefault("analyzer.url", "")
	v.SetDefault("analyzer.timeout", 60*time.Second)
	v.SetDefault("analyzer.low_cut", a.LowCut)
	v.SetDefault("analyzer.high_cut", a.HighCut)
	v.SetDefault("analyzer.order", a.Order)
	v.SetDefault("analyzer.segment_length", a.SegmentLength)
	v.SetDefault("analyzer.overlap", a.Overlap)
	v.SetDefault("analyzer.noise_frames", a.NoiseFrames)
	v.SetDefault("analyzer.alpha", a.Alpha)

	v.SetDefault("playback.tick_interval", 200*time.Millisecond)
	v.SetDefault("playback.index_mode", window.Proportional.String())

	v.SetDefault("render.min_frequency", 100.0)
	v.SetDefault("render.max_frequency", 4000.0)
	v.SetDefault("render.osc_height", 6)
	v.SetDefault("render.spec_height", 12)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.max_clips", 16)
	v.SetDefault("server.request_timeout", 2*time.Minute)
}

// Load reads the config file (file, or sonoscope.yaml in the usual places)
// and decodes v into a validated Config. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
		v.AddConfigPath(filepath.Join("/etc", appName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := c.Analyzer.Config.Validate(); err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}
	if c.Analyzer.URL != "" && !strings.HasPrefix(c.Analyzer.URL, "http://") && !strings.HasPrefix(c.Analyzer.URL, "https://") {
		return fmt.Errorf("analyzer.url must be an http(s) URL, got %q", c.Analyzer.URL)
	}
	if c.Playback.TickInterval <= 0 {
		return fmt.Errorf("playback.tick_interval must be positive, got %v", c.Playback.TickInterval)
	}
	if _, err := window.ParseMode(c.Playback.IndexMode); err != nil {
		return fmt.Errorf("playback.index_mode: %w", err)
	}
	if c.Render.MinFrequency < 0 || c.Render.MaxFrequency <= c.Render.MinFrequency {
		return fmt.Errorf("render frequency range [%v, %v] is empty", c.Render.MinFrequency, c.Render.MaxFrequency)
	}
	if c.Render.OscHeight < 1 || c.Render.SpecHeight < 1 {
		return fmt.Errorf("render heights must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 || c.Server.MaxClips <= 0 {
		return fmt.Errorf("server.max_upload_bytes and server.max_clips must be positive")
	}
	return nil
}

// Resolver returns the window resolver selected by playback.index_mode.
func (c PlaybackConfig) Resolver() window.Resolver {
	mode, _ := window.ParseMode(c.IndexMode)
	return window.Resolver{Mode: mode}
}
