package utils

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// HandlePrefix is prepended to every pseudonymous bidder handle
const HandlePrefix = "BIDDER-"

// GenerateID returns a new unique identifier string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateHandle returns a random display handle such as BIDDER-3F9A1C0B7E22.
// The token comes from the random part of a v4 UUID and carries nothing
// about the participant it is assigned to.
func GenerateHandle() string {
	id := uuid.New()
	return HandlePrefix + strings.ToUpper(hex.EncodeToString(id[10:16]))
}
