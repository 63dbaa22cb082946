// Package backendtest is an in-process chat backend speaking the polling
// REST contract. It backs transport and end-to-end tests and the devserver
// command.
package backendtest

import (
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/proto"
)

// ModerationReplacement substitutes forbidden words in posted messages.
const ModerationReplacement = "[censored]"

// DefaultForbiddenWords are censored by the backend.
var DefaultForbiddenWords = []string{"darn", "heck", "badword", "crap", "poop", "stupid", "job", "employment", "job application"}

// Options tune the fake backend.
type Options struct {
	// Anonymous lets /getMessages and /postMessage work without a bearer
	// token; anonymous posts name their sender with the username field.
	Anonymous bool
	// NumericIDs makes message ids JSON numbers instead of uuid strings.
	NumericIDs bool
	// ForbiddenWords overrides DefaultForbiddenWords.
	ForbiddenWords []string
	Logger         *zerolog.Logger
	// Now replaces time.Now for message timestamps.
	Now func() time.Time
}

type user struct {
	username     string
	passwordHash string
}

type message struct {
	id        string
	numericID int64
	sender    string
	text      string
	timestamp time.Time
	room      string
}

// Server is the fake backend state plus its gin engine.
type Server struct {
	opts   Options
	log    *zerolog.Logger
	tokens tokenConfig
	censor []*regexp.Regexp
	engine *gin.Engine

	mu       sync.Mutex
	users    map[string]user
	rooms    map[string][]message
	epoch    int
	nextID   int64
	requests map[string]int

	ts *httptest.Server
}

// New creates a backend with the general room seeded.
func New(opts Options) *Server {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	words := opts.ForbiddenWords
	if words == nil {
		words = DefaultForbiddenWords
	}

	s := &Server{
		opts: opts,
		log:  opts.Logger,
		tokens: tokenConfig{
			secret: []byte("backendtest-" + uuid.NewString()),
			issuer: "backendtest",
			ttl:    24 * time.Hour,
		},
		users:    make(map[string]user),
		rooms:    map[string][]message{core.DefaultRoom: nil},
		requests: make(map[string]int),
	}
	for _, w := range words {
		s.censor = append(s.censor, regexp.MustCompile("(?i)"+regexp.QuoteMeta(w)))
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the gin engine.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// Start serves the backend on a loopback listener and returns its URL.
func (s *Server) Start() string {
	s.ts = httptest.NewServer(s.engine)
	return s.ts.URL
}

// Close stops a started server.
func (s *Server) Close() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// ExpireSessions invalidates every token issued so far.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
}

// Post stores a message from sender as if another client had posted it and
// returns its id.
func (s *Server) Post(room, sender, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(room, sender, text).id
}

// Messages returns the stored listing of room.
func (s *Server) Messages(room string) []proto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]proto.Message, 0, len(s.rooms[room]))
	for _, m := range s.rooms[room] {
		out = append(out, proto.Message{
			ID:        proto.ID(m.id),
			Sender:    m.sender,
			Text:      m.text,
			Timestamp: m.timestamp.UTC().Format(time.RFC3339Nano),
			Room:      m.room,
		})
	}
	return out
}

// Rooms returns the sorted room ids.
func (s *Server) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomsLocked()
}

// Requests reports how many requests hit path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *Server) roomsLocked() []string {
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) appendLocked(room, sender, text string) message {
	s.nextID++
	m := message{
		id:        uuid.NewString(),
		numericID: s.nextID,
		sender:    sender,
		text:      text,
		timestamp: s.opts.Now(),
		room:      room,
	}
	if s.opts.NumericIDs {
		m.id = strconv.FormatInt(m.numericID, 10)
	}
	s.rooms[room] = append(s.rooms[room], m)
	return m
}

func (s *Server) moderate(text string) string {
	for _, re := range s.censor {
		text = re.ReplaceAllLiteralString(text, ModerationReplacement)
	}
	return text
}

func normalizeRoomID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = whitespace.ReplaceAllString(id, "-")
	return invalidRoomChars.ReplaceAllString(id, "")
}

var (
	whitespace       = regexp.MustCompile(`\s+`)
	invalidRoomChars = regexp.MustCompile(`[^a-z0-9-]`)
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)
