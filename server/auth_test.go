package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewAuth(nil)
	tok, err := a.Join("room-1", "u1", "alice", "1.2.3.4")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	c, err := a.ValidateToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c != (Claims{UserID: "u1", Username: "alice", Room: "room-1"}) {
		t.Errorf("claims = %+v", c)
	}

	if _, err := NewAuth(nil).ValidateToken(tok); err == nil {
		t.Error("token accepted under a different secret")
	}
}

func TestJoinValidatesNames(t *testing.T) {
	a := NewAuth(nil)
	if _, err := a.Join("r", "", "alice", "ip"); err == nil {
		t.Error("empty user id accepted")
	}
	if _, err := a.Join("r", "u1", "a", "ip"); err == nil {
		t.Error("one-letter username accepted")
	}
	if _, err := a.Join("r", "u1", "averyveryverylongname", "ip"); err == nil {
		t.Error("long username accepted")
	}
}

func TestJoinRateLimit(t *testing.T) {
	a := NewAuth(nil)
	for i := 0; i < maxJoinAttempts; i++ {
		if _, err := a.Join("r", "u1", "alice", "9.9.9.9"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if _, err := a.Join("r", "u1", "alice", "9.9.9.9"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
	if _, err := a.Join("r", "u1", "alice", "8.8.8.8"); err != nil {
		t.Errorf("other address limited: %v", err)
	}
}

func TestPasscodes(t *testing.T) {
	open, err := HashPasscode("")
	if err != nil || open != "" {
		t.Fatalf("open room hash %q %v", open, err)
	}
	if err := CheckPasscode(open, "anything"); err != nil {
		t.Errorf("open room rejected: %v", err)
	}

	hash, err := HashPasscode("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPasscode(hash, "hunter2"); err != nil {
		t.Errorf("right passcode rejected: %v", err)
	}
	if err := CheckPasscode(hash, "hunter3"); !errors.Is(err, ErrBadPasscode) {
		t.Errorf("got %v, want ErrBadPasscode", err)
	}
	if _, err := HashPasscode("0123456789012345678901234567890123"); err == nil {
		t.Error("overlong passcode accepted")
	}
}

func TestSecretPersists(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	tok, err := NewAuth(db).Join("r", "u1", "alice", "ip")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := NewAuth(db).ValidateToken(tok); err != nil {
		t.Errorf("token from before restart rejected: %v", err)
	}
}
