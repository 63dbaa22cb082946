package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validation messages shown next to the login form.
const (
	msgRequired       = "Username and password are required."
	msgUsernameLength = "Username must be 3-20 characters."
	msgPasswordLength = "Password must be at least 6 characters."
	msgUsernameChars  = "Username can only contain letters, numbers, underscore, and hyphen."
	msgGuestName      = "Display name must be 3-20 characters."
)

// Authenticator exchanges credentials for a session with the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (core.Session, error)
	Register(ctx context.Context, username, password string) (core.Session, error)
}

// Service owns the current identity and its persisted copy.
type Service struct {
	auth     Authenticator
	prefs    store.Prefs
	validate *validator.Validate
	log      *zerolog.Logger

	mu      sync.RWMutex
	current *core.Session
}

// NewService creates a session service. A nil validator gets a fresh one.
func NewService(auth Authenticator, prefs store.Prefs, validate *validator.Validate, logger *zerolog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	// Re-registering the same tag is harmless.
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		auth:     auth,
		prefs:    prefs,
		validate: validate,
		log:      logger,
	}
}

// Validate checks credentials locally, in the order the form reports them.
func (s *Service) Validate(username, password string, register bool) error {
	username = strings.TrimSpace(username)
	if s.validate.Var(username, "required") != nil || s.validate.Var(strings.TrimSpace(password), "required") != nil {
		return core.ValidationError(msgRequired)
	}
	if s.validate.Var(username, "min=3,max=20") != nil {
		return core.ValidationError(msgUsernameLength)
	}
	if s.validate.Var(password, "min=6") != nil {
		return core.ValidationError(msgPasswordLength)
	}
	if register && s.validate.Var(username, "username") != nil {
		return core.ValidationError(msgUsernameChars)
	}
	return nil
}

// Login validates, authenticates and persists the session.
func (s *Service) Login(ctx context.Context, username, password string) (core.Session, error) {
	return s.authenticate(ctx, username, password, false)
}

// Register creates the account and logs in with it.
func (s *Service) Register(ctx context.Context, username, password string) (core.Session, error) {
	return s.authenticate(ctx, username, password, true)
}

func (s *Service) authenticate(ctx context.Context, username, password string, register bool) (core.Session, error) {
	if err := s.Validate(username, password, register); err != nil {
		return core.Session{}, err
	}
	username = strings.TrimSpace(username)

	var (
		sess core.Session
		err  error
	)
	if register {
		sess, err = s.auth.Register(ctx, username, password)
	} else {
		sess, err = s.auth.Login(ctx, username, password)
	}
	if err != nil {
		return core.Session{}, err
	}
	if sess.Token == "" {
		return core.Session{}, core.AuthError("Authentication failed: no session token returned.")
	}
	if sess.Username == "" {
		sess.Username = username
	}

	err = s.prefs.Update(ctx, map[string]string{
		store.KeyUsername: sess.Username,
		store.KeyToken:    sess.Token,
	}, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("user", sess.Username).Msg("failed to persist session")
	}

	s.set(&sess)
	s.log.Info().Str("user", sess.Username).Bool("register", register).Msg("authenticated")
	return sess, nil
}

// Guest starts an anonymous session under a display name. It is never persisted.
func (s *Service) Guest(name string) (core.Session, error) {
	name = strings.TrimSpace(name)
	if s.validate.Var(name, "required,min=3,max=20") != nil {
		return core.Session{}, core.ValidationError(msgGuestName)
	}
	sess := core.Session{Username: name}
	s.set(&sess)
	return sess, nil
}

// Restore loads a persisted session without contacting the backend.
func (s *Service) Restore(ctx context.Context) (core.Session, bool) {
	username, okUser, err := s.prefs.Get(ctx, store.KeyUsername)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read persisted username")
		return core.Session{}, false
	}
	token, okToken, err := s.prefs.Get(ctx, store.KeyToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read persisted token")
		return core.Session{}, false
	}
	if !okUser || !okToken || username == "" || token == "" {
		if okUser || okToken {
			// half a pair is never valid
			if err := s.clearPersisted(ctx); err != nil {
				s.log.Warn().Err(err).Msg("failed to drop partial session")
			}
		}
		return core.Session{}, false
	}

	sess := core.Session{Username: username, Token: token}
	s.set(&sess)
	s.log.Debug().Str("user", username).Msg("session restored")
	return sess, true
}

// Clear forgets the current and persisted session. Safe to call repeatedly.
func (s *Service) Clear(ctx context.Context) error {
	s.set(nil)
	if err := s.clearPersisted(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the active session, if any.
func (s *Service) Current() (core.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return core.Session{}, false
	}
	return *s.current, true
}

// LastRoom returns the room the user was last in, or the default room.
func (s *Service) LastRoom(ctx context.Context) string {
	room, ok, err := s.prefs.Get(ctx, store.KeyLastRoom)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read last room")
	}
	if !ok || room == "" {
		return core.DefaultRoom
	}
	return room
}

// RememberRoom persists the active room for the next start.
func (s *Service) RememberRoom(ctx context.Context, room string) error {
	if err := s.prefs.Set(ctx, store.KeyLastRoom, room); err != nil {
		return fmt.Errorf("remember room: %w", err)
	}
	return nil
}

func (s *Service) set(sess *core.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *Service) clearPersisted(ctx context.Context) error {
	return s.prefs.Update(ctx, nil, []string{store.KeyUsername, store.KeyToken})
}
