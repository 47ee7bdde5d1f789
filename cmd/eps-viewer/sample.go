package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ehr/epsviewer/internal/domain/summary"
	"github.com/ehr/epsviewer/internal/platform/export"
	"github.com/ehr/epsviewer/internal/platform/render"
	"github.com/ehr/epsviewer/internal/platform/sample"
)

func sampleCmd() *cobra.Command {
	var (
		withSummary bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the bundled demonstration patient summary document",
		Long: `Print the bundled demonstration Bundle as JSON. With --summary the
document is summarised instead, in the configured output format.

  eps-viewer sample > demo.json
  eps-viewer summarize demo.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !withSummary {
				_, err := out.Write(sample.BundleJSON())
				return err
			}

			cfg, logger, err := setup(os.Stderr)
			if err != nil {
				logger.Error().Err(err).Msg("failed to load config")
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = cfg.OutputFormat
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			b, err := sample.Bundle()
			if err != nil {
				return err
			}
			s, err := summary.Extract(b)
			if err != nil {
				return err
			}
			return writeSummary(out, s, f, render.Options{Color: cfg.Color})
		},
	}

	cmd.Flags().BoolVar(&withSummary, "summary", false, "print the summary of the sample instead of the document")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "summary format: text, json or yaml")
	return cmd
}
