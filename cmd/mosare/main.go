package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Caller().Logger()

	rootCmd := &cobra.Command{
		Use:           "mosare",
		Short:         "Reconciles clinical extracts into the renal panel report",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd(&log))
	rootCmd.AddCommand(serveCmd(&log))
	rootCmd.AddCommand(watchCmd(&log))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("mosare failed")
		os.Exit(1)
	}
}
