package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-poll/internal/backendtest"
	"github.com/vovakirdan/wirechat-poll/internal/log"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run the in-memory test backend for local use",
	RunE:  runDevserver,
}

var (
	flagDevAddr      string
	flagDevAnonymous bool
)

func init() {
	flags := devserverCmd.Flags()
	flags.StringVar(&flagDevAddr, "addr", ":8000", "listen address")
	flags.BoolVar(&flagDevAnonymous, "anonymous", false, "accept posts without a token")
}

func runDevserver(_ *cobra.Command, _ []string) error {
	logger := log.New(flagLogLevel, nil)
	backend := backendtest.New(backendtest.Options{Anonymous: flagDevAnonymous, Logger: logger})

	server := &stdhttp.Server{
		Addr:              flagDevAddr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signalContext()
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", flagDevAddr).Msg("dev backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("dev backend: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info().Msg("shutting down dev backend")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
