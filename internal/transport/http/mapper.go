package http

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/proto"
)

func messagesFromProto(room string, msgs []proto.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, core.Message{
			ID:        string(m.ID),
			Room:      room,
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: parseTimestamp(m.Timestamp),
			State:     core.StateConfirmed,
		})
	}
	return out
}

// parseTimestamp accepts ISO-8601 instants; anything else yields the zero time.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// classify maps a non-2xx answer to the client error taxonomy. An unauthorized
// answer to a call that carried a bearer token means the session is gone.
func classify(op string, status int, body []byte, token string) error {
	if isSuccess(status) {
		return nil
	}

	var resp proto.StatusResponse
	_ = json.Unmarshal(body, &resp)

	if status == stdhttp.StatusUnauthorized && token != "" {
		return core.SessionExpiredError(resp.Message)
	}
	return core.RejectedError(serverMessage(resp.Message, op+" failed", status))
}

func serverMessage(msg, fallback string, status int) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("%s (%d)", fallback, status)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
