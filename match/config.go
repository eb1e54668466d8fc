package match

import "time"

const (
	TickRate      = 60 // frames per second driven by Loop
	TickDuration  = time.Second / TickRate
	maxFrameDelta = 250 * time.Millisecond
)

// ZoneAuthority selects who computes the safe zone
type ZoneAuthority int

const (
	// ZonePeerLocal: every peer shrinks its own zone on the shared schedule.
	ZonePeerLocal ZoneAuthority = 0
	// ZoneLeaderBroadcast: the roster leader shrinks and publishes zone_update,
	// everyone else applies the broadcasts.
	ZoneLeaderBroadcast ZoneAuthority = 1
)

// ZoneConfig holds the safe zone schedule
type ZoneConfig struct {
	StartRadius    float64
	MinRadius      float64
	ShrinkStep     float64
	ShrinkInterval time.Duration
	DamagePerTick  float64

	// DamageBeforeStart applies zone damage in the lobby too; only the
	// shrink schedule waits for game_started
	DamageBeforeStart bool
}

// Config holds settings for one match
type Config struct {
	MapWidth          float64
	MapHeight         float64
	PlayerRadius      float64
	PlayerSpeed       float64 // px/s at full stick deflection
	PlayerFriction    float64 // velocity multiplier per tick with no input
	BulletSize        float64
	MaxBullets        int
	BroadcastInterval time.Duration
	RemoteTimeout     time.Duration
	Smoothing         float64 // fraction of remaining distance closed per tick
	Zone              ZoneConfig
	ZoneAuthority     ZoneAuthority
	LootCount         int
	InboxSize         int
}

// DefaultConfig returns the standard battle royale settings
func DefaultConfig() Config {
	return Config{
		MapWidth:          2000,
		MapHeight:         2000,
		PlayerRadius:      PlayerRadius,
		PlayerSpeed:       240,
		PlayerFriction:    0.95,
		BulletSize:        4,
		MaxBullets:        500,
		BroadcastInterval: 50 * time.Millisecond,
		RemoteTimeout:     2 * time.Second,
		Smoothing:         0.1,
		Zone: ZoneConfig{
			StartRadius:       800,
			MinRadius:         150,
			ShrinkStep:        50,
			ShrinkInterval:    10 * time.Second,
			DamagePerTick:     0.5,
			DamageBeforeStart: true,
		},
		ZoneAuthority: ZonePeerLocal,
		LootCount:     30,
		InboxSize:     256,
	}
}

// Bounds returns the map rectangle
func (c Config) Bounds() Rect {
	return Rect{W: c.MapWidth, H: c.MapHeight}
}

// Center returns the middle of the map, where the zone is anchored
func (c Config) Center() Vec2 {
	return Vec2{X: c.MapWidth / 2, Y: c.MapHeight / 2}
}
