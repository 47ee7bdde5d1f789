package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/epsviewer/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "eps-viewer",
		Short: "Read a European Patient Summary bundle and show its clinical summary",
		Long: `eps-viewer reads a FHIR R4 patient summary Bundle and extracts the patient,
allergies and intolerances, current medications and active conditions into a
flat summary. The summary is printed as text, JSON or YAML, or served over
HTTP with "eps-viewer serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sampleCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger: JSON lines, or a console writer when
// running in development.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: !cfg.Color}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// setup loads configuration and builds the logger for a command. Commands
// whose stdout carries data log to stderr.
func setup(logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.New(logOut).With().Timestamp().Logger(), err
	}
	return cfg, newLogger(cfg, logOut), nil
}
