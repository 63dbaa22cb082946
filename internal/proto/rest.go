package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Backend endpoint paths.
const (
	PathRegister      = "/register"
	PathLogin         = "/login"
	PathGetRooms      = "/getRooms"
	PathCreateRoom    = "/createRoom"
	PathGetMessages   = "/getMessages"
	PathPostMessage   = "/postMessage"
	PathDeleteMessage = "/deleteMessage"
)

// Form field and query parameter names.
const (
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldRoomName  = "roomName"
	FieldRoom      = "room"
	FieldMessage   = "message"
	FieldMessageID = "messageId"
	FieldRoomID    = "roomId"
)

// StatusResponse is the common envelope of write endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AuthResponse is returned by /login and /register.
type AuthResponse struct {
	StatusResponse
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
}

// CreateRoomResponse is returned by /createRoom.
type CreateRoomResponse struct {
	StatusResponse
	RoomID string `json:"roomId,omitempty"`
}

// PostMessageResponse is returned by /postMessage.
type PostMessageResponse struct {
	StatusResponse
	Censored bool `json:"censored,omitempty"`
}

// Message is one entry of /getMessages.
type Message struct {
	ID        ID     `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	Room      string `json:"room,omitempty"`
}

// ID is a message identifier sent either as a JSON string or a JSON number.
type ID string

// UnmarshalJSON accepts "abc", 42 and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	*id = ID(n.String())
	return nil
}
