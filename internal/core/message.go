package core

import "time"

// MessageState tracks where a message is in its confirmation lifecycle.
type MessageState int

const (
	// StateConfirmed messages come from the backend's latest listing, or were
	// acknowledged by it and are waiting for their echo.
	StateConfirmed MessageState = iota
	// StateOptimistic messages are rendered locally while the post is in flight.
	StateOptimistic
	// StateFailed messages were rejected by the post request itself.
	StateFailed
)

func (s MessageState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateOptimistic:
		return "optimistic"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is the domain model for a chat message.
type Message struct {
	ID        string
	Room      string
	Sender    string
	Text      string
	Timestamp time.Time
	State     MessageState
	// Local is set for entries owned by the client (temporary id).
	Local bool
}

// Draft is a message the user is about to submit.
type Draft struct {
	Sender string
	Text   string
}

// PostResult is the backend's answer to a successful post.
type PostResult struct {
	Censored bool
	Message  string
}
