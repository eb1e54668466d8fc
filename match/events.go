package match

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// EventKind is the wire tag of a match event
type EventKind string

const (
	KindPlayerUpdate EventKind = "player_update"
	KindPlayerHit    EventKind = "player_hit"
	KindPlayerDied   EventKind = "player_died"
	KindGameStarted  EventKind = "game_started"
	KindZoneUpdate   EventKind = "zone_update"
)

var (
	ErrBusClosed      = errors.New("match: bus closed")
	ErrUnknownEvent   = errors.New("match: unknown event")
	ErrMalformedEvent = errors.New("match: malformed event")
)

// Event is one of PlayerUpdate, PlayerHit, PlayerDied, GameStarted or
// ZoneUpdate. The set is closed: validate is unexported.
type Event interface {
	Kind() EventKind
	validate() error
}

// PlayerUpdate is a peer's periodic self-snapshot
type PlayerUpdate struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Health    float64 `json:"health"`
	Team      Team    `json:"team"`
	Skin      string  `json:"skin,omitempty"`
	SkinLevel int     `json:"skinLevel,omitempty"`
}

// PlayerHit reports that killerId's bullet struck targetUserId
type PlayerHit struct {
	TargetUserID string  `json:"targetUserId"`
	Damage       float64 `json:"damage"`
	KillerID     string  `json:"killerId"`
}

// PlayerDied reports a death; killerId is ZoneKillerID for zone deaths
type PlayerDied struct {
	UserID   string `json:"userId"`
	KillerID string `json:"killerId"`
}

// GameStarted announces the roster and optional spawn points
type GameStarted struct {
	Teams       Teams        `json:"teams"`
	SpawnPoints *SpawnPoints `json:"spawnPoints,omitempty"`
}

// ZoneUpdate carries the leader's zone
type ZoneUpdate struct {
	Center Vec2    `json:"center"`
	Radius float64 `json:"radius"`
}

func (PlayerUpdate) Kind() EventKind { return KindPlayerUpdate }
func (PlayerHit) Kind() EventKind    { return KindPlayerHit }
func (PlayerDied) Kind() EventKind   { return KindPlayerDied }
func (GameStarted) Kind() EventKind  { return KindGameStarted }
func (ZoneUpdate) Kind() EventKind   { return KindZoneUpdate }

func (e PlayerUpdate) validate() error {
	if e.UserID == "" {
		return errors.New("missing userId")
	}
	if !finite(e.X, e.Y, e.Rotation, e.Health) {
		return errors.New("non-finite coordinates")
	}
	return nil
}

func (e PlayerHit) validate() error {
	if e.TargetUserID == "" || e.KillerID == "" {
		return errors.New("missing targetUserId or killerId")
	}
	if !finite(e.Damage) || e.Damage < 0 {
		return fmt.Errorf("bad damage %v", e.Damage)
	}
	return nil
}

func (e PlayerDied) validate() error {
	if e.UserID == "" || e.KillerID == "" {
		return errors.New("missing userId or killerId")
	}
	return nil
}

func (e GameStarted) validate() error {
	for _, id := range e.Teams.Blue {
		if id == "" {
			return errors.New("empty user id in roster")
		}
		if slices.Contains(e.Teams.Red, id) {
			return fmt.Errorf("user %q on both teams", id)
		}
	}
	if slices.Contains(e.Teams.Red, "") {
		return errors.New("empty user id in roster")
	}
	if e.SpawnPoints != nil && !finite(e.SpawnPoints.Blue.X, e.SpawnPoints.Blue.Y, e.SpawnPoints.Red.X, e.SpawnPoints.Red.Y) {
		return errors.New("non-finite spawn point")
	}
	return nil
}

func (e ZoneUpdate) validate() error {
	if !finite(e.Center.X, e.Center.Y, e.Radius) || e.Radius <= 0 {
		return fmt.Errorf("bad zone radius %v", e.Radius)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Inbound is a decoded event together with the publishing peer
type Inbound struct {
	From  string
	Event Event
}

// Codec turns events into frames and back
type Codec interface {
	Encode(from string, ev Event) ([]byte, error)
	Decode(data []byte) (Inbound, error)
}

var (
	// JSONCodec encodes {"t","from","d"} text frames
	JSONCodec Codec = jsonCodec{}
	// MsgpackCodec encodes the same envelope as msgpack, for the binary
	// player_update frames
	MsgpackCodec Codec = msgpackCodec{}
)

type jsonEnvelope struct {
	T    EventKind       `json:"t"`
	From string          `json:"from"`
	D    json.RawMessage `json:"d"`
}

type jsonCodec struct{}

func (jsonCodec) Encode(from string, ev Event) ([]byte, error) {
	if err := checkOutbound(from, ev); err != nil {
		return nil, err
	}
	d, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	return json.Marshal(jsonEnvelope{T: ev.Kind(), From: from, D: d})
}

func (jsonCodec) Decode(data []byte) (Inbound, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return route(env.T, env.From, func(v any) error {
		return json.Unmarshal(env.D, v)
	})
}

type packEnvelope struct {
	T    EventKind          `json:"t"`
	From string             `json:"from"`
	D    msgpack.RawMessage `json:"d"`
}

type msgpackCodec struct{}

func (msgpackCodec) Encode(from string, ev Event) ([]byte, error) {
	if err := checkOutbound(from, ev); err != nil {
		return nil, err
	}
	d, err := packMarshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	return packMarshal(packEnvelope{T: ev.Kind(), From: from, D: d})
}

func (msgpackCodec) Decode(data []byte) (Inbound, error) {
	var env packEnvelope
	if err := packUnmarshal(data, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return route(env.T, env.From, func(v any) error {
		return packUnmarshal(env.D, v)
	})
}

// packMarshal and packUnmarshal reuse the json tags so both codecs share
// field names
func packMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func packUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func checkOutbound(from string, ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if from == "" {
		return fmt.Errorf("%w: empty sender", ErrMalformedEvent)
	}
	if err := ev.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	return nil
}

// route is the single decode-and-route point: the tag picks the payload
// type and the payload is validated before it reaches the simulation
func route(kind EventKind, from string, unmarshal func(any) error) (Inbound, error) {
	if from == "" {
		return Inbound{}, fmt.Errorf("%w: empty sender", ErrMalformedEvent)
	}
	var (
		ev  Event
		err error
	)
	switch kind {
	case KindPlayerUpdate:
		ev, err = decodePayload[PlayerUpdate](unmarshal)
	case KindPlayerHit:
		ev, err = decodePayload[PlayerHit](unmarshal)
	case KindPlayerDied:
		ev, err = decodePayload[PlayerDied](unmarshal)
	case KindGameStarted:
		ev, err = decodePayload[GameStarted](unmarshal)
	case KindZoneUpdate:
		ev, err = decodePayload[ZoneUpdate](unmarshal)
	default:
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{From: from, Event: ev}, nil
}

// requiredFields lists the payload keys that must be present; a zero value
// decoded from a missing key would otherwise pass for real data
var requiredFields = map[EventKind][]string{
	KindPlayerUpdate: {"userId", "username", "x", "y", "rotation", "health", "team"},
	KindPlayerHit:    {"targetUserId", "damage", "killerId"},
	KindPlayerDied:   {"userId", "killerId"},
	KindGameStarted:  {"teams"},
	KindZoneUpdate:   {"center", "radius"},
}

func decodePayload[T Event](unmarshal func(any) error) (Event, error) {
	var ev T
	var keys map[string]any
	if err := unmarshal(&keys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	for _, k := range requiredFields[ev.Kind()] {
		if v, ok := keys[k]; !ok || v == nil {
			return nil, fmt.Errorf("%w: %s: missing %s", ErrMalformedEvent, ev.Kind(), k)
		}
	}
	if err := unmarshal(&ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.Kind(), err)
	}
	return ev, nil
}
