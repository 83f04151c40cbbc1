package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func GenerateID() string {
	id, err := gonanoid.Generate(idAlphabet, 7)
	if err != nil {
		return ""
	}
	return id
}

// GenerateRoomName builds a provider-safe room name from a meeting title,
// e.g. "Weekly Sync" -> "weekly-sync-aB3xK9q". The nanoid suffix keeps names
// unique across meetings with identical titles.
func GenerateRoomName(title string) string {
	base := slug.Make(title)
	if len(base) > 32 {
		base = base[:32]
	}
	base = strings.Trim(base, "-")
	suffix := GenerateID()
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// GenerateRandomString generates a cryptographically secure random string
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to nanoid if crypto/rand fails
		id, _ := gonanoid.Generate(idAlphabet, length)
		return id
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length]
}
