package backendtest

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirechat-poll/internal/proto"
)

const contextKeyUsername = "username"

type messageJSON struct {
	ID        any    `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Room      string `json:"room"`
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.countRequests(), s.loggerMiddleware())

	r.POST(proto.PathRegister, s.register)
	r.POST(proto.PathLogin, s.login)

	authed := r.Group("/", s.authMiddleware(false))
	authed.GET(proto.PathGetRooms, s.getRooms)
	authed.POST(proto.PathCreateRoom, s.createRoom)
	authed.DELETE(proto.PathDeleteMessage, s.deleteMessage)

	open := r.Group("/", s.authMiddleware(s.opts.Anonymous))
	open.GET(proto.PathGetMessages, s.getMessages)
	open.POST(proto.PathPostMessage, s.postMessage)
	return r
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests[c.Request.URL.Path]++
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("backend request")
	}
}

// authMiddleware resolves the bearer token. With optional set a missing
// header is allowed through anonymously; a bad token is still rejected.
func (s *Server) authMiddleware(optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && optional {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			fail(c, http.StatusUnauthorized, "Unauthorized. Please login again.")
			return
		}
		claims, err := s.tokens.validate(token)
		if err != nil {
			s.log.Debug().Err(err).Msg("invalid token")
			fail(c, http.StatusUnauthorized, "Unauthorized. Please login again.")
			return
		}
		s.mu.Lock()
		stale := claims.Epoch != s.epoch
		s.mu.Unlock()
		if stale {
			fail(c, http.StatusUnauthorized, "Unauthorized. Please login again.")
			return
		}

		c.Set(contextKeyUsername, claims.Username)
		c.Next()
	}
}

// form reads a urlencoded body for any method; net/http only parses POST,
// PUT and PATCH bodies.
func form(c *gin.Context) url.Values {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		return url.Values{}
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return url.Values{}
	}
	return values
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, proto.StatusResponse{Success: false, Message: msg})
}

func (s *Server) register(c *gin.Context) {
	f := form(c)
	username, password := f.Get(proto.FieldUsername), f.Get(proto.FieldPassword)
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		fail(c, http.StatusBadRequest, "Username and password are required.")
		return
	}
	username = strings.TrimSpace(username)
	switch {
	case len(username) < 3 || len(username) > 20:
		fail(c, http.StatusBadRequest, "Username must be 3-20 characters.")
		return
	case len(password) < 6:
		fail(c, http.StatusBadRequest, "Password must be at least 6 characters.")
		return
	case !usernamePattern.MatchString(username):
		fail(c, http.StatusBadRequest, "Username can only contain letters, numbers, underscore, and hyphen.")
		return
	}

	hash, err := hashPassword(password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	s.mu.Lock()
	key := strings.ToLower(username)
	if _, exists := s.users[key]; exists {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "Username already exists.")
		return
	}
	s.users[key] = user{username: username, passwordHash: hash}
	epoch := s.epoch
	s.mu.Unlock()

	token, err := s.tokens.generate(username, epoch)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusCreated, proto.AuthResponse{
		StatusResponse: proto.StatusResponse{Success: true, Message: "Registration successful! Logging you in..."},
		Username:       username,
		Token:          token,
	})
}

func (s *Server) login(c *gin.Context) {
	f := form(c)
	username, password := f.Get(proto.FieldUsername), f.Get(proto.FieldPassword)
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		fail(c, http.StatusBadRequest, "Username and password are required.")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	epoch := s.epoch
	s.mu.Unlock()
	if !ok || comparePassword(u.passwordHash, password) != nil {
		fail(c, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token, err := s.tokens.generate(u.username, epoch)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, proto.AuthResponse{
		StatusResponse: proto.StatusResponse{Success: true, Message: "Login successful!"},
		Username:       u.username,
		Token:          token,
	})
}

func (s *Server) getRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.Rooms())
}

func (s *Server) createRoom(c *gin.Context) {
	raw := form(c).Get(proto.FieldRoomName)
	if strings.TrimSpace(raw) == "" {
		fail(c, http.StatusBadRequest, "Room name cannot be empty.")
		return
	}
	roomID := normalizeRoomID(raw)
	if len(roomID) < 3 || len(roomID) > 15 {
		fail(c, http.StatusBadRequest, "Room name: 3-15 valid chars (letters, numbers, hyphens).")
		return
	}
	if s.moderate(roomID) != roomID {
		fail(c, http.StatusBadRequest, "Room name contains forbidden words.")
		return
	}

	s.mu.Lock()
	if _, exists := s.rooms[roomID]; exists {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "Room '"+roomID+"' already exists.")
		return
	}
	s.rooms[roomID] = nil
	s.mu.Unlock()

	c.JSON(http.StatusCreated, proto.CreateRoomResponse{
		StatusResponse: proto.StatusResponse{Success: true, Message: "Room '" + roomID + "' created."},
		RoomID:         roomID,
	})
}

func (s *Server) getMessages(c *gin.Context) {
	room := c.Query(proto.FieldRoom)
	if room == "" {
		room = "general"
	}

	s.mu.Lock()
	stored := s.rooms[room]
	out := make([]messageJSON, 0, len(stored))
	for _, m := range stored {
		var id any = m.id
		if s.opts.NumericIDs {
			id = m.numericID
		}
		out = append(out, messageJSON{
			ID:        id,
			Sender:    m.sender,
			Text:      m.text,
			Timestamp: m.timestamp.UTC().Format(time.RFC3339Nano),
			Room:      m.room,
		})
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

func (s *Server) postMessage(c *gin.Context) {
	f := form(c)
	text, room := f.Get(proto.FieldMessage), f.Get(proto.FieldRoom)
	if strings.TrimSpace(text) == "" || strings.TrimSpace(room) == "" {
		fail(c, http.StatusBadRequest, "Message or room ID missing.")
		return
	}

	sender := c.GetString(contextKeyUsername)
	if sender == "" {
		sender = strings.TrimSpace(f.Get(proto.FieldUsername))
		if sender == "" {
			fail(c, http.StatusBadRequest, "Username is required.")
			return
		}
	}

	moderated := s.moderate(text)
	censored := moderated != text

	s.mu.Lock()
	s.appendLocked(room, sender, moderated)
	s.mu.Unlock()

	c.JSON(http.StatusOK, proto.PostMessageResponse{
		StatusResponse: proto.StatusResponse{Success: true, Message: "Message posted"},
		Censored:       censored,
	})
}

func (s *Server) deleteMessage(c *gin.Context) {
	f := form(c)
	roomID, messageID := f.Get(proto.FieldRoomID), f.Get(proto.FieldMessageID)
	if strings.TrimSpace(roomID) == "" || strings.TrimSpace(messageID) == "" {
		fail(c, http.StatusBadRequest, "Room ID and Message ID are required.")
		return
	}
	username := c.GetString(contextKeyUsername)

	s.mu.Lock()
	msgs, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, "Room not found.")
		return
	}
	removed := false
	for i, m := range msgs {
		if m.id == messageID && m.sender == username {
			s.rooms[roomID] = append(msgs[:i:i], msgs[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if !removed {
		fail(c, http.StatusNotFound, "Message not found or you are not authorized to delete it.")
		return
	}
	c.JSON(http.StatusOK, proto.StatusResponse{Success: true, Message: "Message deleted."})
}
