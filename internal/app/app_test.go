package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/backendtest"
	"github.com/vovakirdan/wirechat-poll/internal/config"
	"github.com/vovakirdan/wirechat-poll/internal/linemode"
	"github.com/vovakirdan/wirechat-poll/internal/store"
)

func TestRunPostsThroughBackend(t *testing.T) {
	backend := backendtest.New(backendtest.Options{})
	url := backend.Start()
	t.Cleanup(backend.Close)

	cfg := config.Default()
	cfg.BaseURL = url
	cfg.PollInterval = 20 * time.Millisecond
	cfg.DataPath = filepath.Join(t.TempDir(), "prefs.db")

	application, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ui := func(ctx context.Context, a *App) error {
		in := strings.NewReader("hello from tail\n")
		if err := linemode.Run(ctx, a.Sync(), in, io.Discard, linemode.Options{
			Username: "alice",
			Password: "secret1",
			Register: true,
		}); err != nil {
			return err
		}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && len(backend.Messages("general")) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
		tok, ok, err := a.Prefs().Get(ctx, store.KeyToken)
		if err != nil || !ok || tok == "" {
			t.Errorf("session not persisted: %q %v %v", tok, ok, err)
		}
		return nil
	}
	if err := application.Run(ctx, ui); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := backend.Messages("general")
	if len(msgs) != 1 || msgs[0].Text != "hello from tail" || msgs[0].Sender != "alice" {
		t.Fatalf("backend messages = %+v", msgs)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.BaseURL = "ftp://nowhere"
	cfg.DataPath = ""
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}
