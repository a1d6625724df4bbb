package utils

import (
	"strings"

	"github.com/google/uuid"
)

// PlaceholderPrefix marks ids assigned locally to records the server has not seen yet
const PlaceholderPrefix = "local-"

// NewPlaceholderID returns a fresh local placeholder id
func NewPlaceholderID() string {
	return PlaceholderPrefix + uuid.New().String()
}

// IsPlaceholderID reports whether id was assigned locally
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}
