package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/olivier-w/sonoscope/internal/analysis"
	"github.com/olivier-w/sonoscope/internal/logging"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Print the analysis document for a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path, output string) error {
	if output != "json" && output != "yaml" {
		return fmt.Errorf("unknown output format %q (want json or yaml)", output)
	}
	log, err := logging.New(a.cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	uploader, err := a.uploader(logging.Component(log, "upload"))
	if err != nil {
		return err
	}
	res, err := uploader.Upload(cmd.Context(), path)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), res, output)
}

func writeResult(w io.Writer, res *analysis.Result, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(analysis.NewResponse(res, ""))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (want json or yaml)", format)
}
