package core

// CommandKind describes what the user wants to do.
type CommandKind int

const (
	// CommandLogin signs in with Username and Password.
	CommandLogin CommandKind = iota
	// CommandRegister creates an account with Username and Password.
	CommandRegister
	// CommandGuest joins anonymously as Username.
	CommandGuest
	// CommandLogout ends the session.
	CommandLogout
	// CommandSwitchRoom makes Room the active room.
	CommandSwitchRoom
	// CommandCreateRoom creates a room named Text and switches to it.
	CommandCreateRoom
	// CommandRefreshRooms reloads the room listing.
	CommandRefreshRooms
	// CommandSubmit posts Text to the active room.
	CommandSubmit
	// CommandDelete deletes MessageID from the active room.
	CommandDelete
)

func (k CommandKind) String() string {
	switch k {
	case CommandLogin:
		return "login"
	case CommandRegister:
		return "register"
	case CommandGuest:
		return "guest"
	case CommandLogout:
		return "logout"
	case CommandSwitchRoom:
		return "switch_room"
	case CommandCreateRoom:
		return "create_room"
	case CommandRefreshRooms:
		return "refresh_rooms"
	case CommandSubmit:
		return "submit"
	case CommandDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Command represents an action requested by the UI.
type Command struct {
	Kind      CommandKind
	Username  string
	Password  string
	Room      string
	Text      string
	MessageID string
}
