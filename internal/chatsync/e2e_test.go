package chatsync

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/backendtest"
	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/messages"
	"github.com/vovakirdan/wirechat-poll/internal/poller"
	"github.com/vovakirdan/wirechat-poll/internal/session"
	"github.com/vovakirdan/wirechat-poll/internal/store"
	transporthttp "github.com/vovakirdan/wirechat-poll/internal/transport/http"
)

func TestEndToEndPostAgainstBackend(t *testing.T) {
	backend := backendtest.New(backendtest.Options{NumericIDs: true})
	url := backend.Start()
	t.Cleanup(backend.Close)

	client, err := transporthttp.NewClient(url, transporthttp.Options{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := client.Register(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	msgStore := messages.New(messages.DefaultWindow)
	sub := poller.New(20*time.Millisecond, nil)
	o, err := New(Options{
		Backend:      client,
		Sessions:     session.NewService(client, store.NewMemory(), nil, nil),
		Store:        msgStore,
		Subscription: sub,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	events := &recorder{}
	go events.run(ctx, o.Events())
	go func() {
		defer close(done)
		_ = o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if err := o.Dispatch(ctx, core.Command{Kind: core.CommandLogin, Username: "alice", Password: "secret1"}); err != nil {
		t.Fatalf("dispatch login: %v", err)
	}
	eventually(t, "polling general", func() bool { return sub.Active() && sub.Room() == "general" })

	mark := events.mark()
	if err := o.Dispatch(ctx, core.Command{Kind: core.CommandSubmit, Text: "hello"}); err != nil {
		t.Fatalf("dispatch submit: %v", err)
	}
	ev := waitSince(t, events, mark, "optimistic entry", func(ev core.Event) bool {
		return ev.Kind == core.EventView && len(ev.View.Messages) == 1
	})
	if m := ev.View.Messages[0]; !m.Local || m.State != core.StateOptimistic {
		t.Fatalf("first view after submit = %+v", m)
	}

	eventually(t, "confirmed echo", func() bool {
		got := msgStore.Snapshot("general")
		return len(got) == 1 && !got[0].Local && got[0].ID == "1"
	})
	got := msgStore.Snapshot("general")
	if got[0].Sender != "alice" || got[0].Text != "hello" || got[0].State != core.StateConfirmed {
		t.Fatalf("confirmed message = %+v", got[0])
	}

	// expiry on the server ends the session on the next tick
	backend.ExpireSessions()
	eventually(t, "logged out", func() bool { return !sub.Active() })
	if n := len(msgStore.Snapshot("general")); n != 0 {
		t.Fatalf("messages survived expiry: %d", n)
	}
}
