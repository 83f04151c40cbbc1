package utils

import (
	"strings"
	"testing"

	"echoloom-api/core/config"
	"echoloom-api/core/constants"

	"github.com/google/uuid"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"a@example.com",
		"first.last+tag@sub.example.co",
		"  padded@example.com  ",
	}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}

	invalid := []string{
		"",
		"no-at-sign",
		"@example.com",
		"user@",
		"user@host",
		"two words@example.com",
		strings.Repeat("x", 250) + "@example.com",
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestGenerateRoomName(t *testing.T) {
	name := GenerateRoomName("Weekly Sync")
	if !strings.HasPrefix(name, "weekly-sync-") {
		t.Fatalf("room name = %q, want weekly-sync- prefix", name)
	}
	if len(name) <= len("weekly-sync-") {
		t.Fatal("room name is missing its unique suffix")
	}

	// Identical titles must still produce distinct names.
	if GenerateRoomName("Weekly Sync") == GenerateRoomName("Weekly Sync") {
		t.Fatal("two rooms with the same title collided")
	}
}

func TestGenerateRoomNameUnsluggableTitle(t *testing.T) {
	name := GenerateRoomName("!!! ???")
	if name == "" || strings.HasPrefix(name, "-") {
		t.Fatalf("room name for symbol-only title = %q", name)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in the clear")
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("ComparePassword rejected the right password: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("ComparePassword accepted a wrong password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	if _, err := config.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}

	userID := uuid.New()
	email := "ana@example.com"
	name := "Ana"

	token, err := GenerateToken(userID, &email, &name, constants.ScopeTokenAccess)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateAndParseToken(token)
	if err != nil {
		t.Fatalf("ValidateAndParseToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %v, want %v", claims.UserID, userID)
	}
	if claims.Scope != constants.ScopeTokenAccess {
		t.Fatalf("scope = %q", claims.Scope)
	}
	if claims.Email == nil || *claims.Email != email {
		t.Fatalf("email claim = %v", claims.Email)
	}

	if _, err := ValidateAndParseToken(token + "tampered"); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if len(id) != 7 {
			t.Fatalf("id %q has length %d, want 7", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
