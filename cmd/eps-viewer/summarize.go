package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehr/epsviewer/internal/domain/summary"
	"github.com/ehr/epsviewer/internal/platform/export"
	"github.com/ehr/epsviewer/internal/platform/intake"
	"github.com/ehr/epsviewer/internal/platform/render"
)

func summarizeCmd() *cobra.Command {
	var (
		format string
		output string
		color  bool
	)

	cmd := &cobra.Command{
		Use:   "summarize [file|-]",
		Short: "Summarise a patient summary bundle read from a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(os.Stderr)
			if err != nil {
				logger.Error().Err(err).Msg("failed to load config")
				return err
			}

			if !cmd.Flags().Changed("format") {
				format = cfg.OutputFormat
			}
			if !cmd.Flags().Changed("color") {
				color = cfg.Color
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				logger.Error().Err(err).Msg("invalid --format")
				return err
			}

			maxSize, err := cfg.MaxDocumentBytes()
			if err != nil {
				return err
			}

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				out, err := os.Create(output)
				if err != nil {
					logger.Error().Err(err).Str("output", output).Msg("failed to create output file")
					return err
				}
				defer out.Close()
				w = out
			}

			reader := intake.NewReader(maxSize, logger)
			if err := summarizeFile(reader, summary.NewExtractor(), path, w, f, render.Options{Color: color}); err != nil {
				logger.Error().Err(err).Str("document", path).Msg("failed to summarise document")
				return err
			}
			logger.Debug().Str("document", path).Str("format", string(f)).Msg("summary written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the summary to this file instead of stdout")
	cmd.Flags().BoolVar(&color, "color", false, "colour severity and status tags in text output")
	return cmd
}

// summarizeFile reads the bundle at path, extracts its summary and writes it
// to w.
func summarizeFile(reader *intake.Reader, x *summary.Extractor, path string, w io.Writer, f export.Format, opts render.Options) error {
	doc, err := reader.ReadFile(path)
	if err != nil {
		return err
	}

	s, err := x.Extract(doc.Bundle)
	if err != nil {
		return fmt.Errorf("%s: %w", doc.Name, err)
	}
	return writeSummary(w, s, f, opts)
}

func writeSummary(w io.Writer, s *summary.Summary, f export.Format, opts render.Options) error {
	if f == export.FormatText {
		return render.Write(w, s, opts)
	}
	return export.Encode(w, s, f)
}
