package core

// EventKind is a notification the orchestrator emits to the UI surface.
type EventKind int

const (
	// EventState reports a lifecycle transition; Session is set when authenticated.
	EventState EventKind = iota
	// EventView delivers a fresh projection of the active room.
	EventView
	// EventRooms delivers the room listing and the active room.
	EventRooms
	// EventAuthFailed reports a login/registration failure for the auth form.
	EventAuthFailed
	// EventDraftRestored hands a failed submission's text back to the compose input.
	EventDraftRestored
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventView:
		return "view"
	case EventRooms:
		return "rooms"
	case EventAuthFailed:
		return "auth_failed"
	case EventDraftRestored:
		return "draft_restored"
	default:
		return "unknown"
	}
}

// Event is sent to the UI to describe what happened.
type Event struct {
	Kind    EventKind
	State   State
	Session *Session
	View    *View
	Rooms   []string
	Room    string
	Err     error
	Text    string
}

// NoticeLevel styles a system notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient, client-generated system message.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// View is the renderable projection of the active room. The renderer only
// reads it.
type View struct {
	Room     string
	Username string
	Messages []Message
	Notices  []Notice
	// FollowBottom forces the viewport to the newest content, regardless of
	// where the reader was.
	FollowBottom bool
}
