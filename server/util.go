package main

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateRoomCode returns a short uppercase room code
func GenerateRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}
