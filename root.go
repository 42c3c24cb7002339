package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/olivier-w/sonoscope/internal/analyzer"
	"github.com/olivier-w/sonoscope/internal/config"
	"github.com/olivier-w/sonoscope/internal/upload"
)

// configKey is the flag annotation naming the config key a flag overrides.
const configKey = "sonoscope_config_key"

// app carries the state shared by all commands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "sonoscope [file]",
		Short: "Oscillogram and spectrogram playback in the terminal",
		Long: `sonoscope analyzes an audio clip into an oscillogram and a noise-reduced
spectrogram, then reveals both progressively in step with playback.

Without a subcommand it runs the terminal player ("sonoscope play").`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.load(cmd) },
		RunE:              a.runPlay,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "",
		"config file (default is ./sonoscope.yaml, then $HOME/.config/sonoscope/sonoscope.yaml)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	bindKey(pf, "log-level", "log.level")
	pf.String("analyzer-url", "", "remote analyzer base URL (empty analyzes in process)")
	bindKey(pf, "analyzer-url", "analyzer.url")
	pf.String("index-mode", "", "oscillogram prefix mode (proportional, timestamp)")
	bindKey(pf, "index-mode", "playback.index_mode")

	addPlayFlags(root.Flags())
	root.AddCommand(newPlayCmd(a), newServeCmd(a), newAnalyzeCmd(a))
	return root
}

// load binds the command's flags and reads the configuration.
func (a *app) load(cmd *cobra.Command) error {
	if err := bindFlags(cmd, a.v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// bindKey marks a flag as the command-line source of a config key.
func bindKey(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, configKey, []string{key})
}

// bindFlags binds every annotated flag, local or inherited, to its viper key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error
	bind := func(f *pflag.Flag) {
		keys := f.Annotations[configKey]
		if len(keys) == 0 {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			lastErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return lastErr
}

// uploader picks the remote analyzer when a URL is configured and the
// in-process one otherwise.
func (a *app) uploader(log *zap.Logger) (upload.Uploader, error) {
	if url := a.cfg.Analyzer.URL; url != "" {
		log.Info("using remote analyzer", zap.String("url", url))
		return upload.NewClient(url, &http.Client{Timeout: a.cfg.Analyzer.Timeout}), nil
	}
	an, err := analyzer.New(a.cfg.Analyzer.Config)
	if err != nil {
		return nil, err
	}
	return upload.Local{Analyzer: an}, nil
}
