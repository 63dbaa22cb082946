package chatsync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/messages"
	"github.com/vovakirdan/wirechat-poll/internal/poller"
	"github.com/vovakirdan/wirechat-poll/internal/session"
	"github.com/vovakirdan/wirechat-poll/internal/store"
)

type fakeBackend struct {
	mu sync.Mutex

	rooms      []string
	messages   map[string][]core.Message
	gates      map[string]*gate
	allGates   []*gate
	listCalls  map[string]int
	listTokens []string
	roomCalls  int
	posts      []string
	deletes    []string
	created    []string
	logins     int

	loginErr  error
	postErr   error
	createErr error
	deleteErr error
	censor    bool
	echo      bool
	expired   bool
	nextID    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rooms:     []string{"general", "random"},
		messages:  make(map[string][]core.Message),
		gates:     make(map[string]*gate),
		listCalls: make(map[string]int),
	}
}

func (f *fakeBackend) Login(_ context.Context, username, _ string) (core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return core.Session{}, f.loginErr
	}
	return core.Session{Username: username, Token: "tok-" + username}, nil
}

func (f *fakeBackend) Register(ctx context.Context, username, password string) (core.Session, error) {
	return f.Login(ctx, username, password)
}

func (f *fakeBackend) ListRooms(_ context.Context, token string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCalls++
	if f.expired && token != "" {
		return nil, core.SessionExpiredError("")
	}
	return append([]string(nil), f.rooms...), nil
}

func (f *fakeBackend) CreateRoom(_ context.Context, _, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	if f.createErr != nil {
		return "", f.createErr
	}
	f.rooms = append(f.rooms, name)
	return name, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, token, room string) ([]core.Message, error) {
	f.mu.Lock()
	f.listCalls[room]++
	f.listTokens = append(f.listTokens, token)
	g := f.gates[room]
	f.mu.Unlock()

	// a held gate delays the response regardless of cancellation
	if g != nil {
		<-g.ch
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired && token != "" {
		return nil, core.SessionExpiredError("Unauthorized. Please login again.")
	}
	return append([]core.Message(nil), f.messages[room]...), nil
}

func (f *fakeBackend) PostMessage(_ context.Context, sess core.Session, room, text string) (core.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, text)
	if f.postErr != nil {
		return core.PostResult{}, f.postErr
	}
	if f.echo {
		f.addLocked(room, sess.Username, text)
	}
	return core.PostResult{Censored: f.censor}, nil
}

func (f *fakeBackend) DeleteMessage(_ context.Context, _, room, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	msgs := f.messages[room]
	for i, m := range msgs {
		if m.ID == id {
			f.messages[room] = append(msgs[:i:i], msgs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) add(room, sender, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(room, sender, text)
}

func (f *fakeBackend) addLocked(room, sender, text string) string {
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.messages[room] = append(f.messages[room], core.Message{
		ID:        id,
		Room:      room,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	})
	return id
}

// gate delays ListMessages responses for one room until opened.
type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() {
	g.once.Do(func() { close(g.ch) })
}

// hold makes later ListMessages calls for room wait for the returned gate.
func (f *fakeBackend) hold(room string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{ch: make(chan struct{})}
	f.gates[room] = g
	f.allGates = append(f.allGates, g)
	return g
}

// release stops holding room and opens its gate.
func (f *fakeBackend) release(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.gates[room]; ok {
		g.open()
		delete(f.gates, room)
	}
}

func (f *fakeBackend) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.allGates {
		g.open()
	}
	f.gates = make(map[string]*gate)
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) count(fn func(f *fakeBackend) int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

// fakeSub records subscription calls; ticks are fired by the test.
type fakeSub struct {
	mu     sync.Mutex
	calls  []string
	active bool
	room   string
	onTick func(string)
}

func (s *fakeSub) Start(room string, onTick func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return poller.ErrActive
	}
	s.calls = append(s.calls, "start:"+room)
	s.active = true
	s.room = room
	s.onTick = onTick
	return nil
}

func (s *fakeSub) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "stop")
	s.active = false
	s.onTick = nil
}

func (s *fakeSub) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeSub) fire() {
	s.mu.Lock()
	fn, room := s.onTick, s.room
	s.mu.Unlock()
	if fn != nil {
		fn(room)
	}
}

func (s *fakeSub) activeRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ""
	}
	return s.room
}

func (s *fakeSub) starts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c != "stop" {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSub) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *fakeSub) log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) run(ctx context.Context, ch <-chan core.Event) {
	for {
		select {
		case ev := <-ch:
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (r *recorder) find(pred func(core.Event) bool) (core.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if pred(ev) {
			return ev, true
		}
	}
	return core.Event{}, false
}

func (r *recorder) lastView() *core.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == core.EventView {
			return r.events[i].View
		}
	}
	return nil
}

func (r *recorder) mark() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) since(n int) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events[n:]...)
}

type harness struct {
	o       *Orchestrator
	backend *fakeBackend
	sub     *fakeSub
	store   *messages.Store
	prefs   *store.MemoryPrefs
	metrics *Metrics
	events  *recorder
	confirm chan bool
	prompts chan string
}

type harnessOption func(*harness, *Options)

func withPrefs(kv map[string]string) harnessOption {
	return func(h *harness, _ *Options) {
		for k, v := range kv {
			_ = h.prefs.Set(context.Background(), k, v)
		}
	}
}

func withBackend(fn func(f *fakeBackend)) harnessOption {
	return func(h *harness, _ *Options) {
		h.backend.set(fn)
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		backend: newFakeBackend(),
		sub:     &fakeSub{},
		store:   messages.New(messages.DefaultWindow),
		prefs:   store.NewMemory(),
		metrics: NewMetrics(),
		events:  &recorder{},
		confirm: make(chan bool, 1),
		prompts: make(chan string, 8),
	}
	o := Options{
		Backend:      h.backend,
		Sessions:     session.NewService(h.backend, h.prefs, nil, nil),
		Store:        h.store,
		Subscription: h.sub,
		Metrics:      h.metrics,
		Denylist:     []string{"crap", "heck"},
		Confirmer: ConfirmFunc(func(ctx context.Context, prompt string) bool {
			select {
			case h.prompts <- prompt:
			default:
			}
			select {
			case ok := <-h.confirm:
				return ok
			case <-ctx.Done():
				return false
			}
		}),
	}
	for _, opt := range opts {
		opt(h, &o)
	}

	orch, err := New(o)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	h.o = orch

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go h.events.run(ctx, orch.Events())
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()
	t.Cleanup(func() {
		h.backend.releaseAll()
		cancel()
		<-done
	})
	return h
}

func (h *harness) dispatch(t *testing.T, cmd core.Command) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.o.Dispatch(ctx, cmd); err != nil {
		t.Fatalf("dispatch %s: %v", cmd.Kind, err)
	}
}

// login authenticates alice and waits until general is polled.
func (h *harness) login(t *testing.T) {
	t.Helper()
	h.dispatch(t, core.Command{Kind: core.CommandLogin, Username: "alice", Password: "secret1"})
	h.waitPolling(t, "general")
}

func (h *harness) waitPolling(t *testing.T, room string) {
	t.Helper()
	eventually(t, "polling "+room, func() bool {
		_, ok := h.events.find(func(ev core.Event) bool {
			return ev.Kind == core.EventState && ev.State == core.StateAuthenticatedPolling
		})
		return ok && h.sub.activeRoom() == room
	})
}

// barrier waits until every command dispatched before it was handled.
func (h *harness) barrier(t *testing.T) {
	t.Helper()
	before := h.backend.count(func(f *fakeBackend) int { return f.roomCalls })
	h.dispatch(t, core.Command{Kind: core.CommandRefreshRooms})
	eventually(t, "barrier", func() bool {
		return h.backend.count(func(f *fakeBackend) int { return f.roomCalls }) > before
	})
}

func (h *harness) listCalls(room string) int {
	return h.backend.count(func(f *fakeBackend) int { return f.listCalls[room] })
}

func (h *harness) hasNotice(text string) bool {
	v := h.events.lastView()
	if v == nil {
		return false
	}
	for _, n := range v.Notices {
		if n.Text == text {
			return true
		}
	}
	return false
}

// waitLoggedOut waits for the logout that follows an expired token.
func (h *harness) waitLoggedOut(t *testing.T, mark int) {
	t.Helper()
	waitSince(t, h.events, mark, "logged out", func(ev core.Event) bool {
		return ev.Kind == core.EventState && ev.State == core.StateUnauthenticated
	})
	if h.sub.Active() {
		t.Fatalf("polling continued after expiry")
	}
	if _, ok, _ := h.prefs.Get(context.Background(), store.KeyToken); ok {
		t.Fatalf("token still persisted")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustEvent(t *testing.T, r *recorder, what string, pred func(core.Event) bool) core.Event {
	t.Helper()
	var found core.Event
	eventually(t, what, func() bool {
		ev, ok := r.find(pred)
		found = ev
		return ok
	})
	return found
}

// waitSince waits for an event recorded after mark.
func waitSince(t *testing.T, r *recorder, mark int, what string, pred func(core.Event) bool) core.Event {
	t.Helper()
	var found core.Event
	eventually(t, what, func() bool {
		for _, ev := range r.since(mark) {
			if pred(ev) {
				found = ev
				return true
			}
		}
		return false
	})
	return found
}
