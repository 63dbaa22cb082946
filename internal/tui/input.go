package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

type actionKind int

const (
	actionNone actionKind = iota
	actionCommand
	actionDelete
	actionTheme
	actionHelp
	actionQuit
)

// action is one parsed input line.
type action struct {
	kind  actionKind
	cmd   core.Command
	index int
	theme string
}

const helpText = "Commands: /login user pass, /register user pass, /guest name, /logout, " +
	"/join room, /create name, /rooms, /delete N, /theme [light|dark], /quit"

var errUsage = errors.New("usage")

// parseInput turns a line into an action. Lines not starting with a slash
// are messages.
func parseInput(line string) (action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return action{}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandSubmit, Text: line}}, nil
	}

	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "/login", "/register":
		if len(args) != 2 {
			return action{}, usage(name + " username password")
		}
		kind := core.CommandLogin
		if name == "/register" {
			kind = core.CommandRegister
		}
		return action{kind: actionCommand, cmd: core.Command{Kind: kind, Username: args[0], Password: args[1]}}, nil
	case "/guest":
		if len(args) != 1 {
			return action{}, usage("/guest name")
		}
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandGuest, Username: args[0]}}, nil
	case "/logout":
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandLogout}}, nil
	case "/join":
		if len(args) != 1 {
			return action{}, usage("/join room")
		}
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandSwitchRoom, Room: strings.TrimPrefix(args[0], "#")}}, nil
	case "/create":
		if len(args) == 0 {
			return action{}, usage("/create name")
		}
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandCreateRoom, Text: strings.Join(args, " ")}}, nil
	case "/rooms":
		return action{kind: actionCommand, cmd: core.Command{Kind: core.CommandRefreshRooms}}, nil
	case "/delete":
		if len(args) != 1 {
			return action{}, usage("/delete N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return action{}, usage("/delete N")
		}
		return action{kind: actionDelete, index: n}, nil
	case "/theme":
		if len(args) > 1 {
			return action{}, usage("/theme [light|dark]")
		}
		a := action{kind: actionTheme}
		if len(args) == 1 {
			a.theme = strings.ToLower(args[0])
			if _, ok := themes[a.theme]; !ok {
				return action{}, usage("/theme [light|dark]")
			}
		}
		return a, nil
	case "/help":
		return action{kind: actionHelp}, nil
	case "/quit", "/exit":
		return action{kind: actionQuit}, nil
	default:
		return action{}, errors.New("Unknown command " + name + ". Type /help.")
	}
}

func usage(form string) error {
	return &usageError{form: form}
}

type usageError struct {
	form string
}

func (e *usageError) Error() string {
	return "Usage: " + e.form
}

func (e *usageError) Is(target error) bool {
	return target == errUsage
}
