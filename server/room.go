package main

import (
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"
)

const (
	maxRooms          = 100
	maxMembersPerRoom = 20
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrTooManyRooms = errors.New("too many active rooms")
	ErrBadRoomCode  = errors.New("room code must be 3-32 letters, digits, '-' or '_'")
	ErrRoomFull     = errors.New("room full")
)

var roomCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// Room is one match's relay group. It never inspects gameplay; it only
// fans frames out to every member, the sender included.
type Room struct {
	Code     string
	passHash string

	mu      sync.RWMutex
	members map[*Client]struct{}
}

func newRoom(code, passHash string) *Room {
	return &Room{
		Code:     code,
		passHash: passHash,
		members:  make(map[*Client]struct{}),
	}
}

// Add registers a member. It fails once the room is full.
func (r *Room) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) >= maxMembersPerRoom {
		return ErrRoomFull
	}
	r.members[c] = struct{}{}
	return nil
}

// Remove drops a member and returns how many remain
func (r *Room) Remove(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, c)
	return len(r.members)
}

// Len returns the number of connected members
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast queues a frame for every member
func (r *Room) Broadcast(f outFrame) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.members {
		c.Send(f)
	}
}

// RoomManager handles creation and lookup of rooms
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	db    *DB
}

// NewRoomManager creates a RoomManager. Rooms are persisted when db is set.
func NewRoomManager(db *DB) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		db:    db,
	}
}

// CreateRoom creates a room; an empty code gets a generated one
func (rm *RoomManager) CreateRoom(code, passcode string) (*Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = GenerateRoomCode()
	}
	if !roomCodeRe.MatchString(code) {
		return nil, ErrBadRoomCode
	}
	hash, err := HashPasscode(passcode)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.rooms) >= maxRooms {
		return nil, ErrTooManyRooms
	}
	if _, ok := rm.rooms[code]; ok {
		return nil, ErrRoomExists
	}
	if rm.db != nil {
		if row, err := rm.db.GetRoom(code); err != nil {
			return nil, err
		} else if row != nil {
			return nil, ErrRoomExists
		}
		if err := rm.db.CreateRoom(code, hash); err != nil {
			return nil, err
		}
	}
	room := newRoom(code, hash)
	rm.rooms[code] = room
	return room, nil
}

// GetRoom returns a room by code, reloading persisted rooms on demand
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	room := rm.rooms[code]
	rm.mu.RUnlock()
	if room != nil || rm.db == nil {
		return room
	}

	row, err := rm.db.GetRoom(code)
	if err != nil {
		log.Printf("room lookup %s: %v", code, err)
		return nil
	}
	if row == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok := rm.rooms[code]; ok {
		return room
	}
	room = newRoom(row.Code, row.PassHash)
	rm.rooms[code] = room
	return room
}

// Count returns the number of loaded rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
