package core

// Session is the signed-in identity. Token is empty for guest sessions; a
// non-empty token always pairs with a non-empty username.
type Session struct {
	Username string
	Token    string
}

// Guest reports whether the session has no bearer credential.
func (s Session) Guest() bool {
	return s.Token == ""
}

// State is the orchestrator's lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticatedIdle
	StateAuthenticatedPolling
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticatedIdle:
		return "authenticated-idle"
	case StateAuthenticatedPolling:
		return "authenticated-polling"
	default:
		return "unknown"
	}
}

// Authenticated reports whether a session is established.
func (s State) Authenticated() bool {
	return s == StateAuthenticatedIdle || s == StateAuthenticatedPolling
}
