package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultRoom always exists and is the fallback for every listing.
const DefaultRoom = "general"

const (
	roomMinLen = 3
	roomMaxLen = 15
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slugInvalid   = regexp.MustCompile(`[^a-z0-9-]`)
	roomID        = regexp.MustCompile(`^[a-z0-9-]{3,15}$`)
)

// RoomIDRule describes a valid room id.
const RoomIDRule = "Valid room ID: 3-15 letters, numbers, hyphens."

// ValidRoomID reports whether id already follows the room slug rules.
func ValidRoomID(id string) bool {
	return roomID.MatchString(id)
}

// NormalizeRoomName turns a human-entered name into a room slug.
func NormalizeRoomName(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(raw); n < roomMinLen || n > roomMaxLen {
		return "", ValidationError("Room name: 3-15 chars.")
	}
	slug := strings.ToLower(raw)
	slug = whitespaceRun.ReplaceAllString(slug, "-")
	slug = slugInvalid.ReplaceAllString(slug, "")
	if !ValidRoomID(slug) {
		return "", ValidationError(RoomIDRule)
	}
	return slug, nil
}

// WithDefaultRoom returns ids with DefaultRoom guaranteed present, keeping
// server order and dropping duplicates. DefaultRoom is prepended if missing.
func WithDefaultRoom(ids []string) []string {
	out := make([]string, 0, len(ids)+1)
	seen := make(map[string]struct{}, len(ids)+1)
	hasDefault := false
	for _, id := range ids {
		if id == DefaultRoom {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		out = append(out, DefaultRoom)
		seen[DefaultRoom] = struct{}{}
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ContainsRoom reports whether id is in ids.
func ContainsRoom(ids []string, id string) bool {
	for _, r := range ids {
		if r == id {
			return true
		}
	}
	return false
}
