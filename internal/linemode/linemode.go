// Package linemode is a headless chat client: it prints what the sync loop
// renders and sends stdin lines as messages.
package linemode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

// ErrSessionEnded is returned when the session is logged out or expires.
var ErrSessionEnded = errors.New("session ended")

// Dispatcher is the sync loop as seen by the line client.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd core.Command) error
	Events() <-chan core.Event
}

// Options select the identity and room.
type Options struct {
	Username string
	Password string
	Register bool
	// Guest joins anonymously under Username when set.
	Guest bool
	// Room to join after login; empty keeps the remembered room.
	Room string
}

func (o Options) command() core.Command {
	switch {
	case o.Guest:
		return core.Command{Kind: core.CommandGuest, Username: o.Username}
	case o.Register:
		return core.Command{Kind: core.CommandRegister, Username: o.Username, Password: o.Password}
	default:
		return core.Command{Kind: core.CommandLogin, Username: o.Username, Password: o.Password}
	}
}

// Run logs in, joins the room and then relays lines until in is exhausted,
// the session ends or ctx is cancelled.
func Run(ctx context.Context, d Dispatcher, in io.Reader, out io.Writer, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.Dispatch(ctx, opts.command()); err != nil {
		return fmt.Errorf("dispatch login: %w", err)
	}

	p := newPrinter(out)
	ready := make(chan struct{})
	readErr := make(chan error, 1)
	go func() {
		defer cancel()
		readErr <- readLoop(ctx, d, p, ready, opts.Room)
	}()

	select {
	case <-ready:
	case err := <-readErr:
		return err
	case <-ctx.Done():
		return nil
	}

	fmt.Fprintln(out, "Type messages and press Enter to send. Ctrl+C to exit.")
	if err := writeLoop(ctx, d, in); err != nil {
		return err
	}

	select {
	case err := <-readErr:
		return err
	default:
		return nil
	}
}

func readLoop(ctx context.Context, d Dispatcher, p *printer, ready chan<- struct{}, room string) error {
	var (
		state    core.State
		current  string
		switched bool
		isReady  bool
	)
	markReady := func() {
		if !isReady {
			isReady = true
			close(ready)
		}
	}

	events := d.Events()
	for {
		var ev core.Event
		select {
		case ev = <-events:
		case <-ctx.Done():
			return nil
		}
		p.apply(ev)

		switch ev.Kind {
		case core.EventAuthFailed:
			if !isReady {
				return ev.Err
			}
		case core.EventState:
			state = ev.State
			if isReady && state == core.StateUnauthenticated {
				return ErrSessionEnded
			}
		case core.EventView:
			current = ev.View.Room
			if switched {
				markReady()
			}
		}

		if isReady || state != core.StateAuthenticatedPolling {
			continue
		}
		if room == "" || current == room {
			markReady()
			continue
		}
		if !switched {
			switched = true
			if err := d.Dispatch(ctx, core.Command{Kind: core.CommandSwitchRoom, Room: room}); err != nil {
				return fmt.Errorf("dispatch join: %w", err)
			}
		}
	}
}

func writeLoop(ctx context.Context, d Dispatcher, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			return nil
		}

		cmd, quit := lineCommand(line)
		if quit {
			return nil
		}
		if cmd == nil {
			continue
		}
		if err := d.Dispatch(ctx, *cmd); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("dispatch: %w", err)
		}
	}
}

func lineCommand(line string) (*core.Command, bool) {
	switch {
	case line == "":
		return nil, false
	case line == "/quit":
		return nil, true
	case line == "/logout":
		return &core.Command{Kind: core.CommandLogout}, false
	case strings.HasPrefix(line, "/join "):
		room := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(line, "/join ")), "#")
		return &core.Command{Kind: core.CommandSwitchRoom, Room: room}, false
	default:
		return &core.Command{Kind: core.CommandSubmit, Text: line}, false
	}
}
