package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks ids chosen by the client for messages the backend has
// not echoed yet.
const TempIDPrefix = "tmp-"

// NewTempID returns a unique temporary message id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
