package chatsync

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/messages"
)

const maxNotices = 20

// Notice texts.
const (
	noticeLoggedOut = "You have been logged out. Login or register to continue."
	noticeModerated = "Your message was modified by server moderation."
	noticeBlocked   = "Your message contains words that are not allowed."
	noticeDeleted   = "Message deleted."
	promptDelete    = "Are you sure you want to delete this message? %q"
)

// Backend is the REST surface the orchestrator drives. An empty token means
// an anonymous request.
type Backend interface {
	ListRooms(ctx context.Context, token string) ([]string, error)
	CreateRoom(ctx context.Context, token, name string) (string, error)
	ListMessages(ctx context.Context, token, room string) ([]core.Message, error)
	PostMessage(ctx context.Context, sess core.Session, room, text string) (core.PostResult, error)
	DeleteMessage(ctx context.Context, token, room, messageID string) error
}

// Sessions owns the identity and its persisted copy.
type Sessions interface {
	Login(ctx context.Context, username, password string) (core.Session, error)
	Register(ctx context.Context, username, password string) (core.Session, error)
	Guest(name string) (core.Session, error)
	Restore(ctx context.Context) (core.Session, bool)
	Clear(ctx context.Context) error
	LastRoom(ctx context.Context) string
	RememberRoom(ctx context.Context, room string) error
}

// Subscription delivers poll ticks for one room at a time.
type Subscription interface {
	Start(room string, onTick func(room string)) error
	Stop()
	Active() bool
}

// Options are the orchestrator's collaborators.
type Options struct {
	Backend      Backend
	Sessions     Sessions
	Store        *messages.Store
	Subscription Subscription
	// Confirmer approves deletions; nil refuses them.
	Confirmer Confirmer
	// Metrics is optional.
	Metrics *Metrics
	// Denylist words block a submission before it reaches the backend.
	Denylist []string
	Logger   *zerolog.Logger
}

type tick struct {
	room string
	gen  int
}

// Orchestrator sequences session, room, polling and message operations. All
// of its state is owned by the Run goroutine; network calls run on their own
// goroutines and hand their results back to the loop.
type Orchestrator struct {
	backend  Backend
	sessions Sessions
	store    *messages.Store
	sub      Subscription
	confirm  Confirmer
	metrics  *Metrics
	denylist []string
	log      *zerolog.Logger

	commands chan core.Command
	events   chan core.Event
	ticks    chan tick
	results  chan func()

	ctx     context.Context
	state   core.State
	sess    core.Session
	room    string
	rooms   []string
	notices []core.Notice

	// epoch changes with every session; gen with every subscription.
	epoch      int
	sessCtx    context.Context
	sessCancel context.CancelFunc
	gen        int
	genCtx     context.Context
	genCancel  context.CancelFunc

	seq        uint64
	applied    uint64
	inflight   int
	followNext bool
	roomsSeq   uint64
}

// New validates the collaborators and builds an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Backend == nil:
		return nil, errors.New("chatsync: backend is required")
	case opts.Sessions == nil:
		return nil, errors.New("chatsync: sessions are required")
	case opts.Store == nil:
		return nil, errors.New("chatsync: message store is required")
	case opts.Subscription == nil:
		return nil, errors.New("chatsync: subscription is required")
	}
	if opts.Confirmer == nil {
		opts.Confirmer = DenyAll
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	denylist := make([]string, 0, len(opts.Denylist))
	for _, w := range opts.Denylist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			denylist = append(denylist, w)
		}
	}

	return &Orchestrator{
		backend:  opts.Backend,
		sessions: opts.Sessions,
		store:    opts.Store,
		sub:      opts.Subscription,
		confirm:  opts.Confirmer,
		metrics:  opts.Metrics,
		denylist: denylist,
		log:      logger,
		commands: make(chan core.Command, 16),
		events:   make(chan core.Event, 64),
		ticks:    make(chan tick, 1),
		results:  make(chan func(), 16),
		state:    core.StateUnauthenticated,
	}, nil
}

// Events delivers notifications for the UI. The consumer must keep reading.
func (o *Orchestrator) Events() <-chan core.Event {
	return o.events
}

// Dispatch queues a command for the loop.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd core.Command) error {
	select {
	case o.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes commands, ticks and results until ctx is cancelled. A
// persisted session is restored first.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	o.sessCtx, o.sessCancel = context.WithCancel(ctx)
	o.genCtx, o.genCancel = context.WithCancel(o.sessCtx)
	defer o.shutdown()

	o.emit(core.Event{Kind: core.EventState, State: o.state})
	if sess, ok := o.sessions.Restore(ctx); ok {
		o.log.Info().Str("user", sess.Username).Msg("restored session")
		o.enterSession(sess)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-o.commands:
			o.handle(cmd)
		case t := <-o.ticks:
			o.onTick(t)
		case apply := <-o.results:
			apply()
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.sub.Stop()
	o.genCancel()
	o.sessCancel()
	o.log.Debug().Msg("sync loop stopped")
}

func (o *Orchestrator) handle(cmd core.Command) {
	o.log.Debug().Str("command", cmd.Kind.String()).Msg("command")

	switch cmd.Kind {
	case core.CommandLogin:
		o.authenticate(cmd.Username, cmd.Password, false)
	case core.CommandRegister:
		o.authenticate(cmd.Username, cmd.Password, true)
	case core.CommandGuest:
		o.guest(cmd.Username)
	case core.CommandLogout:
		o.logout()
	case core.CommandSwitchRoom:
		room := strings.ToLower(strings.TrimSpace(cmd.Room))
		if room == "" || !o.requireSession() {
			return
		}
		if !core.ValidRoomID(room) {
			o.addNotice(core.NoticeError, core.RoomIDRule)
			o.emitView(false)
			return
		}
		o.switchTo(room)
	case core.CommandCreateRoom:
		if o.requireSession() {
			o.createRoom(cmd.Text)
		}
	case core.CommandRefreshRooms:
		if o.requireSession() {
			o.refreshRooms()
		}
	case core.CommandSubmit:
		if o.requireSession() {
			o.submit(cmd.Text)
		}
	case core.CommandDelete:
		if o.requireSession() {
			o.deleteMessage(cmd.MessageID)
		}
	default:
		o.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown command")
	}
}

func (o *Orchestrator) requireSession() bool {
	if o.state.Authenticated() {
		return true
	}
	o.emit(core.Event{Kind: core.EventAuthFailed, Err: core.ErrAuth, Text: "Please log in first."})
	return false
}

// spawn runs work off the loop; the closure it returns is applied on the loop.
func (o *Orchestrator) spawn(ctx context.Context, work func(ctx context.Context) func()) {
	go func() {
		apply := work(ctx)
		if apply == nil {
			return
		}
		select {
		case o.results <- apply:
		case <-o.ctx.Done():
		}
	}()
}

func (o *Orchestrator) authenticate(username, password string, register bool) {
	if o.state != core.StateUnauthenticated {
		o.log.Warn().Str("state", o.state.String()).Msg("ignoring login outside unauthenticated state")
		return
	}
	o.setState(core.StateAuthenticating)

	epoch := o.epoch
	o.spawn(o.ctx, func(ctx context.Context) func() {
		var (
			sess core.Session
			err  error
		)
		if register {
			sess, err = o.sessions.Register(ctx, username, password)
		} else {
			sess, err = o.sessions.Login(ctx, username, password)
		}
		return func() {
			if o.state != core.StateAuthenticating || o.epoch != epoch {
				if err == nil {
					// logged out while authenticating; forget what was persisted
					_ = o.sessions.Clear(o.ctx)
				}
				return
			}
			if err != nil {
				o.log.Info().Err(err).Str("user", username).Msg("authentication failed")
				o.setState(core.StateUnauthenticated)
				o.emit(core.Event{Kind: core.EventAuthFailed, Err: err, Text: err.Error()})
				return
			}
			o.enterSession(sess)
		}
	})
}

func (o *Orchestrator) guest(name string) {
	if o.state != core.StateUnauthenticated {
		return
	}
	sess, err := o.sessions.Guest(name)
	if err != nil {
		o.emit(core.Event{Kind: core.EventAuthFailed, Err: err, Text: err.Error()})
		return
	}
	o.enterSession(sess)
}

func (o *Orchestrator) enterSession(sess core.Session) {
	o.epoch++
	o.sessCancel()
	o.sessCtx, o.sessCancel = context.WithCancel(o.ctx)
	o.resetGeneration()

	o.sess = sess
	o.room = ""
	o.notices = nil
	o.setState(core.StateAuthenticatedIdle)

	room := core.DefaultRoom
	if sess.Guest() {
		o.rooms = core.WithDefaultRoom(nil)
	} else {
		if last := o.sessions.LastRoom(o.ctx); core.ValidRoomID(last) {
			room = last
		}
		o.rooms = core.WithDefaultRoom([]string{room})
		o.refreshRooms()
	}
	o.switchTo(room)
}

func (o *Orchestrator) logout() {
	if o.state == core.StateUnauthenticated {
		// nothing active; still make sure nothing stays persisted
		if err := o.sessions.Clear(o.ctx); err != nil {
			o.log.Warn().Err(err).Msg("failed to clear session")
		}
		return
	}
	o.log.Info().Str("user", o.sess.Username).Msg("logout")
	o.endSession(core.NoticeInfo, noticeLoggedOut)
}

// expire is the logout path taken when the backend rejects the token.
func (o *Orchestrator) expire(err error) {
	o.log.Warn().Err(err).Str("user", o.sess.Username).Msg("session expired")
	msg := core.SessionExpiredError("").Error()
	var cerr *core.Error
	if errors.As(err, &cerr) && cerr.Message != "" {
		msg = cerr.Message
	}
	o.endSession(core.NoticeError, msg)
}

func (o *Orchestrator) endSession(level core.NoticeLevel, text string) {
	o.sub.Stop()
	o.epoch++
	o.sessCancel()
	o.sessCtx, o.sessCancel = context.WithCancel(o.ctx)
	o.resetGeneration()

	if err := o.sessions.Clear(o.ctx); err != nil {
		o.log.Warn().Err(err).Msg("failed to clear session")
	}
	o.store.Clear()

	o.sess = core.Session{}
	o.room = ""
	o.rooms = nil
	o.notices = nil
	o.addNotice(level, text)

	o.setState(core.StateUnauthenticated)
	o.emitRooms()
	o.emitView(false)
}

// handleErr routes a failed call: an expired session logs out, anything else
// becomes a notice when it concerns the active room.
func (o *Orchestrator) handleErr(room, prefix string, err error) {
	if errors.Is(err, core.ErrSessionExpired) {
		o.expire(err)
		return
	}
	if room != o.room {
		return
	}
	o.addNotice(core.NoticeError, prefix+err.Error())
	o.emitView(false)
}

func (o *Orchestrator) setState(s core.State) {
	if o.state == s {
		return
	}
	o.log.Debug().Str("from", o.state.String()).Str("to", s.String()).Msg("state")
	o.state = s

	ev := core.Event{Kind: core.EventState, State: s}
	if s.Authenticated() {
		sess := o.sess
		ev.Session = &sess
	}
	o.emit(ev)
}

func (o *Orchestrator) addNotice(level core.NoticeLevel, text string) {
	if n := len(o.notices); n > 0 && o.notices[n-1].Text == text && o.notices[n-1].Level == level {
		return
	}
	o.notices = append(o.notices, core.Notice{Level: level, Text: text})
	if len(o.notices) > maxNotices {
		o.notices = append([]core.Notice(nil), o.notices[len(o.notices)-maxNotices:]...)
	}
}

func (o *Orchestrator) emitView(follow bool) {
	v := &core.View{
		Room:         o.room,
		Username:     o.sess.Username,
		Notices:      append([]core.Notice(nil), o.notices...),
		FollowBottom: follow,
	}
	if o.room != "" {
		v.Messages = o.store.Snapshot(o.room)
	}
	o.emit(core.Event{Kind: core.EventView, View: v, Room: o.room})
}

func (o *Orchestrator) emitRooms() {
	o.emit(core.Event{Kind: core.EventRooms, Rooms: append([]string(nil), o.rooms...), Room: o.room})
}

func (o *Orchestrator) emit(ev core.Event) {
	select {
	case o.events <- ev:
	case <-o.ctx.Done():
	}
}
