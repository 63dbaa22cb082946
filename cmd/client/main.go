package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-poll/internal/app"
	"github.com/vovakirdan/wirechat-poll/internal/config"
	"github.com/vovakirdan/wirechat-poll/internal/log"
	"github.com/vovakirdan/wirechat-poll/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:           "wirechat-poll",
	Short:         "Polling chat client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat (default)",
	RunE:  runChat,
}

var (
	flagConfig   string
	flagBaseURL  string
	flagLogLevel string
	flagDataPath string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "path to config file (default ./client.yaml)")
	flags.StringVar(&flagBaseURL, "base-url", "", "chat backend base URL")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&flagDataPath, "data-path", "", "sqlite file for persisted session and preferences")

	rootCmd.AddCommand(chatCmd, tailCmd, devserverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wirechat-poll: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. interactive sends logs
// away from the terminal unless a log file is configured.
func setup(interactive bool) (config.Config, *zerolog.Logger, func(), error) {
	bootstrap := log.New("info", os.Stderr)
	cfg, path, err := config.Load(bootstrap, flagConfig)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{
		BaseURL:  flagBaseURL,
		LogLevel: flagLogLevel,
		DataPath: flagDataPath,
	})

	var (
		out     io.Writer = os.Stderr
		closeFn           = func() {}
	)
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return cfg, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		out = io.Discard
	}

	logger := log.New(cfg.LogLevel, out)
	logger.Info().Str("config", path).Str("base_url", cfg.BaseURL).Msg("configuration loaded")
	return cfg, logger, closeFn, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, logger, closeLog, err := setup(true)
	if err != nil {
		return err
	}
	defer closeLog()

	prompter := tui.NewPrompter()
	application, err := app.New(cfg, logger, prompter)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	return application.Run(ctx, func(ctx context.Context, a *app.App) error {
		return tui.Run(ctx, tui.Options{
			Sync:     a.Sync(),
			Prompter: prompter,
			Prefs:    a.Prefs(),
			Scroll:   a.Scroll(),
			Logger:   logger,
		})
	})
}
