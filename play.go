package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/logging"
	"github.com/olivier-w/sonoscope/internal/media"
	"github.com/olivier-w/sonoscope/internal/ui"
)

func newPlayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Play a clip with live oscillogram and spectrogram panels",
		Long: `Play a clip with live oscillogram and spectrogram panels.

The file may be a clip (` + media.SupportedExtsList() + `) or a clip list
(.m3u, .pls), whose playable clips are queued and stepped through with n and p.
Without a file a browser lists the clips of the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runPlay,
	}
	addPlayFlags(cmd.Flags())
	return cmd
}

func addPlayFlags(fs *pflag.FlagSet) {
	fs.Duration("tick", 0, "position update interval (default 200ms)")
	bindKey(fs, "tick", "playback.tick_interval")
	fs.String("log-file", "", "log file (default $HOME/.local/state/sonoscope/sonoscope.log)")
	bindKey(fs, "log-file", "log.file")
}

func (a *app) runPlay(cmd *cobra.Command, args []string) error {
	var clips []string
	if len(args) == 1 {
		var err error
		if clips, err = resolveClips(args[0]); err != nil {
			return err
		}
	}

	cfg := a.cfg
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	uploader, err := a.uploader(logging.Component(log, "upload"))
	if err != nil {
		return err
	}

	m := ui.New(ui.Options{
		Uploader:     uploader,
		Tick:         cfg.Playback.TickInterval,
		Resolver:     cfg.Playback.Resolver(),
		MinFrequency: cfg.Render.MinFrequency,
		MaxFrequency: cfg.Render.MaxFrequency,
		OscHeight:    cfg.Render.OscHeight,
		SpecHeight:   cfg.Render.SpecHeight,
		Logger:       logging.Component(log, "tracker"),
	}, clips...)

	log.Info("starting player", zap.Strings("clips", clips))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}

// resolveClips checks arg and returns the clips to play, expanding clip lists
// to their playable entries.
func resolveClips(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}

	ext := strings.ToLower(filepath.Ext(arg))
	if media.IsClipListExt(ext) {
		paths, err := media.ReadClipList(arg)
		if err != nil {
			return nil, err
		}
		clips := media.PlayableClips(paths)
		if len(clips) == 0 {
			return nil, fmt.Errorf("%s contains no playable clips", arg)
		}
		return clips, nil
	}
	if !media.IsSupportedExt(ext) {
		return nil, fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
	}
	return []string{arg}, nil
}
