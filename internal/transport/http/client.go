package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/proto"
)

const maxBodyBytes = 1 << 20

// Options tune the REST client.
type Options struct {
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *zerolog.Logger
	// Transport is the underlying round tripper; nil uses the default.
	Transport stdhttp.RoundTripper
}

// Client talks to the chat backend over form-encoded REST.
type Client struct {
	base    *url.URL
	http    *stdhttp.Client
	limiter *rate.Limiter
	log     *zerolog.Logger
}

// NewClient creates a client for baseURL. No per-request timeout is set; the
// caller's context bounds each call.
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	next := opts.Transport
	if next == nil {
		next = stdhttp.DefaultTransport
	}

	return &Client{
		base: base,
		http: &stdhttp.Client{
			Transport: &loggingTransport{next: next, log: logger},
		},
		limiter: newLimiter(opts.RateLimit, opts.RateBurst),
		log:     logger,
	}, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, username, password string) (core.Session, error) {
	return c.authenticate(ctx, proto.PathLogin, username, password)
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, username, password string) (core.Session, error) {
	return c.authenticate(ctx, proto.PathRegister, username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (core.Session, error) {
	form := url.Values{}
	form.Set(proto.FieldUsername, username)
	form.Set(proto.FieldPassword, password)

	status, body, err := c.do(ctx, stdhttp.MethodPost, path, nil, form, "")
	if err != nil {
		return core.Session{}, err
	}

	var resp proto.AuthResponse
	decodeErr := json.Unmarshal(body, &resp)
	if !isSuccess(status) || (decodeErr == nil && !resp.Success) {
		return core.Session{}, core.AuthError(serverMessage(resp.Message, "Auth failed", status))
	}
	if decodeErr != nil {
		return core.Session{}, core.NetworkError(strings.TrimPrefix(path, "/"), decodeErr)
	}
	return core.Session{Username: resp.Username, Token: resp.Token}, nil
}

// ListRooms returns the backend's room ids in its order.
func (c *Client) ListRooms(ctx context.Context, token string) ([]string, error) {
	status, body, err := c.do(ctx, stdhttp.MethodGet, proto.PathGetRooms, nil, nil, token)
	if err != nil {
		return nil, err
	}
	if err := classify("get rooms", status, body, token); err != nil {
		return nil, err
	}

	var rooms []string
	if err := json.Unmarshal(body, &rooms); err != nil {
		return nil, core.NetworkError("get rooms", err)
	}
	return rooms, nil
}

// CreateRoom asks the backend to create a room and returns its id.
func (c *Client) CreateRoom(ctx context.Context, token, name string) (string, error) {
	form := url.Values{}
	form.Set(proto.FieldRoomName, name)

	status, body, err := c.do(ctx, stdhttp.MethodPost, proto.PathCreateRoom, nil, form, token)
	if err != nil {
		return "", err
	}
	if err := classify("create room", status, body, token); err != nil {
		return "", err
	}

	var resp proto.CreateRoomResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", core.NetworkError("create room", err)
	}
	if !resp.Success || resp.RoomID == "" {
		return "", core.RejectedError(serverMessage(resp.Message, "Failed to create room", status))
	}
	return resp.RoomID, nil
}

// ListMessages returns the full listing for room. An empty token polls
// anonymously.
func (c *Client) ListMessages(ctx context.Context, token, room string) ([]core.Message, error) {
	query := url.Values{}
	query.Set(proto.FieldRoom, room)

	status, body, err := c.do(ctx, stdhttp.MethodGet, proto.PathGetMessages, query, nil, token)
	if err != nil {
		return nil, err
	}
	if err := classify("get messages", status, body, token); err != nil {
		return nil, err
	}

	var msgs []proto.Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, core.NetworkError("get messages", err)
	}
	return messagesFromProto(room, msgs), nil
}

// PostMessage sends text to room. Guest sessions identify by username.
func (c *Client) PostMessage(ctx context.Context, sess core.Session, room, text string) (core.PostResult, error) {
	form := url.Values{}
	form.Set(proto.FieldMessage, text)
	form.Set(proto.FieldRoom, room)
	if sess.Guest() {
		form.Set(proto.FieldUsername, sess.Username)
	}

	status, body, err := c.do(ctx, stdhttp.MethodPost, proto.PathPostMessage, nil, form, sess.Token)
	if err != nil {
		return core.PostResult{}, err
	}
	if err := classify("post message", status, body, sess.Token); err != nil {
		return core.PostResult{}, err
	}

	var resp proto.PostMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.PostResult{}, core.NetworkError("post message", err)
	}
	if !resp.Success {
		return core.PostResult{}, core.RejectedError(serverMessage(resp.Message, "Message rejected", status))
	}
	return core.PostResult{Censored: resp.Censored, Message: resp.Message}, nil
}

// DeleteMessage removes messageID from room. The ids travel in a form body.
func (c *Client) DeleteMessage(ctx context.Context, token, room, messageID string) error {
	form := url.Values{}
	form.Set(proto.FieldMessageID, messageID)
	form.Set(proto.FieldRoomID, room)

	status, body, err := c.do(ctx, stdhttp.MethodDelete, proto.PathDeleteMessage, nil, form, token)
	if err != nil {
		return err
	}
	if err := classify("delete message", status, body, token); err != nil {
		return err
	}

	var resp proto.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.NetworkError("delete message", err)
	}
	if !resp.Success {
		return core.RejectedError(serverMessage(resp.Message, "Failed to delete message", status))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, token string) (int, []byte, error) {
	op := strings.ToLower(method) + " " + strings.TrimPrefix(path, "/")

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, core.NetworkError(op, err)
	}

	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := stdhttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, core.NetworkError(op, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, core.NetworkError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, core.NetworkError(op, err)
	}
	return resp.StatusCode, data, nil
}
