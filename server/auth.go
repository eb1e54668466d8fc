package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenExpiry     = 12 * time.Hour
	bcryptCost      = 10
	maxPasscodeLen  = 32
	minUsernameLen  = 2
	maxUsernameLen  = 16
	joinRateWindow  = 60 * time.Second
	maxJoinAttempts = 20
)

var (
	ErrBadPasscode = errors.New("wrong passcode")
	ErrRateLimited = errors.New("too many join attempts, try again later")
)

// Claims identify one user in one room
type Claims struct {
	UserID   string
	Username string
	Room     string
}

// Auth issues and checks room tokens and passcodes
type Auth struct {
	jwtSecret []byte

	// Rate limiting for join attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) *Auth {
	return &Auth{
		jwtSecret: loadOrCreateSecret(db),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// HashPasscode returns the bcrypt hash of a room passcode, or "" for an
// open room
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", nil
	}
	if len(passcode) > maxPasscodeLen {
		return "", fmt.Errorf("passcode must be at most %d characters", maxPasscodeLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	return string(hash), nil
}

// CheckPasscode compares a passcode with a room's hash; open rooms accept
// anything
func CheckPasscode(hash, passcode string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)); err != nil {
		return ErrBadPasscode
	}
	return nil
}

// Join validates the caller and issues a token for room
func (a *Auth) Join(room, userID, username, ip string) (string, error) {
	if !a.checkRate(ip) {
		return "", ErrRateLimited
	}
	userID = strings.TrimSpace(userID)
	username = strings.TrimSpace(username)
	if userID == "" || len(userID) > 64 {
		return "", fmt.Errorf("userId must be 1-64 characters")
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	return a.generateToken(Claims{UserID: userID, Username: username, Room: room})
}

// ValidateToken validates a JWT and returns its claims
func (a *Auth) ValidateToken(tokenStr string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return Claims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	var c Claims
	var okUID, okUsr, okRoom bool
	c.UserID, okUID = claims["uid"].(string)
	c.Username, okUsr = claims["usr"].(string)
	c.Room, okRoom = claims["room"].(string)
	if !okUID || !okUsr || !okRoom || c.UserID == "" || c.Room == "" {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	return c, nil
}

func (a *Auth) generateToken(c Claims) (string, error) {
	claims := jwt.MapClaims{
		"uid":  c.UserID,
		"usr":  c.Username,
		"room": c.Room,
		"exp":  time.Now().Add(tokenExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(joinRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxJoinAttempts
}
