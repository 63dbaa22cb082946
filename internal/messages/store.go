package messages

import (
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/utils"
)

// DefaultWindow is used when no positive reconcile window is configured.
const DefaultWindow = 30 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps per-room confirmed messages and locally pending submissions.
// It is safe for concurrent use; the renderer reads snapshots from its own
// goroutine.
type Store struct {
	mu     sync.RWMutex
	window time.Duration
	now    func() time.Time
	rooms  map[string]*roomState
	// tempID -> room
	index map[string]string
}

type roomState struct {
	confirmed []core.Message
	local     []*pending
}

type pending struct {
	msg       core.Message
	submitted time.Time
	ackedAt   time.Time
	moderated bool
	// confirmed ids already listed when the entry was added; they can never echo it.
	known map[string]struct{}
}

// New creates an empty store. window bounds how far a confirmed timestamp may
// be from the submission time and how long an acknowledged post waits for its
// echo.
func New(window time.Duration, opts ...Option) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Store{
		window: window,
		now:    time.Now,
		rooms:  make(map[string]*roomState),
		index:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) room(id string) *roomState {
	r, ok := s.rooms[id]
	if !ok {
		r = &roomState{}
		s.rooms[id] = r
	}
	return r
}

// ReplaceConfirmed installs the backend's latest listing for room and retires
// local entries it accounts for.
func (s *Store) ReplaceConfirmed(room string, msgs []core.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.room(room)
	r.confirmed = make([]core.Message, len(msgs))
	for i, m := range msgs {
		m.Room = room
		m.State = core.StateConfirmed
		m.Local = false
		r.confirmed[i] = m
	}

	now := s.now()
	used := make([]bool, len(r.confirmed))
	kept := r.local[:0]
	for _, p := range r.local {
		if p.msg.State == core.StateFailed {
			kept = append(kept, p)
			continue
		}
		if i := s.match(p, r.confirmed, used); i >= 0 {
			used[i] = true
			delete(s.index, p.msg.ID)
			continue
		}
		if !p.ackedAt.IsZero() && now.Sub(p.ackedAt) > s.window {
			// acknowledged but never listed: the listing wins
			delete(s.index, p.msg.ID)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.local); i++ {
		r.local[i] = nil
	}
	r.local = kept
}

func (s *Store) match(p *pending, confirmed []core.Message, used []bool) int {
	text := normalize(p.msg.Text)
	for i, c := range confirmed {
		if used[i] {
			continue
		}
		if _, seen := p.known[c.ID]; seen {
			continue
		}
		if !strings.EqualFold(c.Sender, p.msg.Sender) {
			continue
		}
		if !p.moderated && normalize(c.Text) != text {
			continue
		}
		if !c.Timestamp.IsZero() && absDuration(c.Timestamp.Sub(p.submitted)) > s.window {
			continue
		}
		return i
	}
	return -1
}

// AddOptimistic appends a pending submission and returns its temporary id.
func (s *Store) AddOptimistic(room string, draft core.Draft) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.room(room)
	known := make(map[string]struct{}, len(r.confirmed))
	for _, c := range r.confirmed {
		known[c.ID] = struct{}{}
	}

	now := s.now()
	id := utils.NewTempID()
	r.local = append(r.local, &pending{
		msg: core.Message{
			ID:        id,
			Room:      room,
			Sender:    draft.Sender,
			Text:      draft.Text,
			Timestamp: now,
			State:     core.StateOptimistic,
			Local:     true,
		},
		submitted: now,
		known:     known,
	})
	s.index[id] = room
	return id
}

// MarkFailed flags a pending submission whose request errored.
func (s *Store) MarkFailed(tempID string) bool {
	return s.update(tempID, func(p *pending) {
		p.msg.State = core.StateFailed
		p.ackedAt = time.Time{}
	})
}

// MarkConfirmed records that the backend accepted the post. The entry stays
// until a listing echoes it.
func (s *Store) MarkConfirmed(tempID string) bool {
	now := s.now()
	return s.update(tempID, func(p *pending) {
		p.msg.State = core.StateConfirmed
		p.ackedAt = now
	})
}

// MarkModerated relaxes text matching for a post the backend rewrote.
func (s *Store) MarkModerated(tempID string) bool {
	return s.update(tempID, func(p *pending) {
		p.moderated = true
	})
}

func (s *Store) update(tempID string, fn func(*pending)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.index[tempID]
	if !ok {
		return false
	}
	for _, p := range s.rooms[room].local {
		if p.msg.ID == tempID {
			fn(p)
			return true
		}
	}
	return false
}

// Discard drops a local entry.
func (s *Store) Discard(tempID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.index[tempID]
	if !ok {
		return false
	}
	delete(s.index, tempID)
	r := s.rooms[room]
	for i, p := range r.local {
		if p.msg.ID == tempID {
			r.local = append(r.local[:i], r.local[i+1:]...)
			return true
		}
	}
	return false
}

// DiscardFailed drops failed entries in room whose text equals text and
// returns how many were dropped.
func (s *Store) DiscardFailed(room, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[room]
	if !ok {
		return 0
	}
	text = normalize(text)
	kept := r.local[:0]
	dropped := 0
	for _, p := range r.local {
		if p.msg.State == core.StateFailed && normalize(p.msg.Text) == text {
			delete(s.index, p.msg.ID)
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(r.local); i++ {
		r.local[i] = nil
	}
	r.local = kept
	return dropped
}

// Remove deletes a confirmed message after the backend acknowledged it.
func (s *Store) Remove(room, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[room]
	if !ok {
		return false
	}
	for i, m := range r.confirmed {
		if m.ID == id {
			r.confirmed = append(r.confirmed[:i], r.confirmed[i+1:]...)
			return true
		}
	}
	return false
}

// Lookup finds a message in room by id, confirmed or local.
func (s *Store) Lookup(room, id string) (core.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return core.Message{}, false
	}
	for _, m := range r.confirmed {
		if m.ID == id {
			return m, true
		}
	}
	for _, p := range r.local {
		if p.msg.ID == id {
			return p.msg, true
		}
	}
	return core.Message{}, false
}

// ResetView clears the rendered listing of room. Local entries survive.
func (s *Store) ResetView(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[room]; ok {
		r.confirmed = nil
	}
}

// Clear forgets every room.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms = make(map[string]*roomState)
	s.index = make(map[string]string)
}

// Snapshot returns confirmed messages in server order followed by unresolved
// local entries in submission order.
func (s *Store) Snapshot(room string) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return []core.Message{}
	}
	out := make([]core.Message, 0, len(r.confirmed)+len(r.local))
	out = append(out, r.confirmed...)
	for _, p := range r.local {
		out = append(out, p.msg)
	}
	return out
}

// Pending reports how many local entries room still holds.
func (s *Store) Pending(room string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rooms[room]; ok {
		return len(r.local)
	}
	return 0
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
