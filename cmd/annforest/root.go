package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/annforest"
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:          "annforest",
	Short:        "Build, query, and ship approximate nearest neighbor indexes",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `annforest builds randomized-projection forests over word embedding
files, answers nearest-neighbor queries against them, and pushes or
pulls index files to and from S3.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
}

func newLogger() *annforest.Logger {
	if flagVerbose {
		return annforest.NewTextLogger(slog.LevelDebug)
	}

	return annforest.NewTextLogger(slog.LevelInfo)
}
