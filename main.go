package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/patrikhermansson/pairmatch/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// main is the entry point of the application.
// The log level comes from DEBUG_PAIRMATCH (see core.LogLevel); an interrupt
// cancels the running command.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// This block sets up a go routine to listen for an interrupt signal which cancels the run
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	go listenForInterrupt(stopChan, cancel)

	if err := cmd.Execute(ctx); err != nil {
		log.Error().Err(err).Msg("pairmatch failed")
		os.Exit(1)
	}
}

// listenForInterrupt cancels the run when an interrupt signal is received.
func listenForInterrupt(stopChan chan os.Signal, cancel context.CancelFunc) {
	<-stopChan
	log.Warn().Msg("Interrupt signal received. Stopping...")
	cancel()
}
