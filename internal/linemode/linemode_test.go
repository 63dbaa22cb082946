package linemode

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

// scripted answers each command with the events the sync loop would emit.
type scripted struct {
	mu     sync.Mutex
	cmds   []core.Command
	events chan core.Event
	msgs   []core.Message
	room   string
}

func newScripted() *scripted {
	return &scripted{events: make(chan core.Event, 32)}
}

func (s *scripted) Events() <-chan core.Event { return s.events }

func (s *scripted) Dispatch(_ context.Context, cmd core.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)

	switch cmd.Kind {
	case core.CommandLogin:
		if cmd.Password != "secret1" {
			err := core.AuthError("Invalid username or password.")
			s.events <- core.Event{Kind: core.EventState, State: core.StateUnauthenticated}
			s.events <- core.Event{Kind: core.EventAuthFailed, Err: err, Text: err.Error()}
			return nil
		}
		s.room = "general"
		s.events <- core.Event{Kind: core.EventState, State: core.StateAuthenticatedIdle}
		s.events <- s.viewLocked()
		s.events <- core.Event{Kind: core.EventState, State: core.StateAuthenticatedPolling}
	case core.CommandSwitchRoom:
		s.room = cmd.Room
		s.events <- s.viewLocked()
	case core.CommandSubmit:
		s.msgs = append(s.msgs, core.Message{ID: cmd.Text, Sender: "alice", Text: cmd.Text, Room: s.room})
		s.events <- s.viewLocked()
	}
	return nil
}

func (s *scripted) viewLocked() core.Event {
	v := &core.View{
		Room:     s.room,
		Username: "alice",
		Notices:  []core.Notice{{Level: core.NoticeSuccess, Text: "Joined #" + s.room + " as alice."}},
		Messages: append([]core.Message(nil), s.msgs...),
	}
	return core.Event{Kind: core.EventView, View: v, Room: s.room}
}

func (s *scripted) commands() []core.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Command(nil), s.cmds...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunJoinsRoomAndSends(t *testing.T) {
	d := newScripted()
	out := &syncBuffer{}
	in := strings.NewReader("hello\n\n/quit\nignored\n")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := Run(ctx, d, in, out, Options{Username: "alice", Password: "secret1", Room: "random"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	cmds := d.commands()
	kinds := make([]core.CommandKind, 0, len(cmds))
	for _, c := range cmds {
		kinds = append(kinds, c.Kind)
	}
	want := []core.CommandKind{core.CommandLogin, core.CommandSwitchRoom, core.CommandSubmit}
	if len(kinds) != len(want) {
		t.Fatalf("commands = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("commands = %v", kinds)
		}
	}
	if cmds[1].Room != "random" || cmds[2].Text != "hello" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
	if !strings.Contains(out.String(), "* Joined #random as alice.") {
		t.Fatalf("join notice missing:\n%s", out.String())
	}
}

func TestRunReportsAuthFailure(t *testing.T) {
	d := newScripted()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := Run(ctx, d, strings.NewReader(""), &syncBuffer{}, Options{Username: "alice", Password: "wrong1"})
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPrinterPrintsOnce(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)
	ts := time.Date(2024, 5, 1, 9, 5, 0, 0, time.Local)

	v := &core.View{
		Room:    "general",
		Notices: []core.Notice{{Level: core.NoticeError, Text: "Could not load new messages: boom"}},
		Messages: []core.Message{
			{ID: "1", Sender: "bob", Text: "hi", Timestamp: ts},
			{ID: "t1", Sender: "alice", Text: "pending", Local: true, State: core.StateOptimistic},
			{ID: "t2", Sender: "alice", Text: "lost", Local: true, State: core.StateFailed},
		},
	}
	p.apply(core.Event{Kind: core.EventView, View: v})
	p.apply(core.Event{Kind: core.EventView, View: v})

	want := "! Could not load new messages: boom\n[09:05] bob: hi\n! not sent: lost\n"
	if out.String() != want {
		t.Fatalf("output:\n%q\nwant:\n%q", out.String(), want)
	}
}
