package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-poll/internal/app"
	"github.com/vovakirdan/wirechat-poll/internal/linemode"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Line mode: print the room and send stdin lines",
	RunE:  runTail,
}

var tailOpts linemode.Options

func init() {
	flags := tailCmd.Flags()
	flags.StringVar(&tailOpts.Username, "user", "", "username (or display name with --guest)")
	flags.StringVar(&tailOpts.Password, "pass", os.Getenv("WIRECHAT_POLL_PASSWORD"), "password (default from WIRECHAT_POLL_PASSWORD)")
	flags.BoolVar(&tailOpts.Register, "register", false, "register the account first")
	flags.BoolVar(&tailOpts.Guest, "guest", false, "join anonymously")
	flags.StringVar(&tailOpts.Room, "room", "", "room to join (default: last room)")
	_ = tailCmd.MarkFlagRequired("user")
}

func runTail(_ *cobra.Command, _ []string) error {
	cfg, logger, closeLog, err := setup(false)
	if err != nil {
		return err
	}
	defer closeLog()

	// deletion is not offered in line mode
	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	err = application.Run(ctx, func(ctx context.Context, a *app.App) error {
		return linemode.Run(ctx, a.Sync(), os.Stdin, os.Stdout, tailOpts)
	})
	if errors.Is(err, linemode.ErrSessionEnded) {
		return nil
	}
	return err
}
