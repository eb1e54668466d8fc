package match

import "math"

const (
	MaxHealth = 100.0
	MaxArmor  = 100.0
	// armorAbsorb is the share of each hit armor can soak
	armorAbsorb = 0.5
	// ZoneKillerID is the killerId reported when the zone finishes a player
	ZoneKillerID = "zone"
)

// Identity is what the account collaborator hands the core at match start
type Identity struct {
	UserID    string
	Username  string
	Team      Team
	Skin      string
	SkinLevel int
}

// Input is the latest control state from the input collaborator
type Input struct {
	Move Vec2 // normalized stick vector, zero when released
	Fire bool
}

// LocalPlayer is the player this client simulates authoritatively
type LocalPlayer struct {
	ID        string
	Username  string
	Team      Team
	Skin      string
	SkinLevel int
	X, Y      float64
	VX, VY    float64
	Rotation  float64
	Health    float64
	Armor     float64
	Dead      bool
	Kills     int
}

// NewLocalPlayer creates the local player at (x, y) with full health
func NewLocalPlayer(id Identity, x, y float64) *LocalPlayer {
	return &LocalPlayer{
		ID:        id.UserID,
		Username:  id.Username,
		Team:      id.Team,
		Skin:      id.Skin,
		SkinLevel: int(Clamp(float64(id.SkinLevel), 1, 5)),
		X:         x,
		Y:         y,
		Health:    MaxHealth,
	}
}

// Pos returns the player's position
func (p *LocalPlayer) Pos() Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

// Move applies one tick of stick input (dt in seconds). With the stick
// held the player runs at full speed and faces the stick; released, the
// player coasts to a stop.
func (p *LocalPlayer) Move(in Input, dt float64, cfg Config) {
	if p.Dead {
		return
	}
	if l := math.Hypot(in.Move.X, in.Move.Y); l > 0 {
		p.VX = in.Move.X / l * cfg.PlayerSpeed
		p.VY = in.Move.Y / l * cfg.PlayerSpeed
		p.Rotation = math.Atan2(in.Move.Y, in.Move.X)
	} else {
		p.VX *= cfg.PlayerFriction
		p.VY *= cfg.PlayerFriction
		// Stop creeping once the player is nearly still
		if math.Abs(p.VX) < 6 {
			p.VX = 0
		}
		if math.Abs(p.VY) < 6 {
			p.VY = 0
		}
	}
	r := cfg.PlayerRadius
	p.X = Clamp(p.X+p.VX*dt, r, cfg.MapWidth-r)
	p.Y = Clamp(p.Y+p.VY*dt, r, cfg.MapHeight-r)
}

// TakeHit applies bullet damage with armor soaking up to half of it.
// It returns true only on the hit that kills.
func (p *LocalPlayer) TakeHit(dmg float64) bool {
	if p.Dead || dmg <= 0 {
		return false
	}
	absorbed := min(p.Armor, dmg*armorAbsorb)
	p.Armor = Clamp(p.Armor-absorbed, 0, MaxArmor)
	return p.takeDamage(dmg - absorbed)
}

// TakeZoneDamage applies zone damage, which ignores armor
func (p *LocalPlayer) TakeZoneDamage(dmg float64) bool {
	if p.Dead || dmg <= 0 {
		return false
	}
	return p.takeDamage(dmg)
}

func (p *LocalPlayer) takeDamage(dmg float64) bool {
	p.Health = Clamp(p.Health-dmg, 0, MaxHealth)
	if p.Health <= 0 {
		p.Dead = true
		p.VX, p.VY = 0, 0
		return true
	}
	return false
}

// Heal restores health up to the cap
func (p *LocalPlayer) Heal(amount float64) {
	if p.Dead {
		return
	}
	p.Health = Clamp(p.Health+amount, 0, MaxHealth)
}

// AddArmor adds armor up to the cap
func (p *LocalPlayer) AddArmor(amount float64) {
	if p.Dead {
		return
	}
	p.Armor = Clamp(p.Armor+amount, 0, MaxArmor)
}

// PlayerView is the renderable view of the local player
type PlayerView struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Team      Team    `json:"team"`
	Skin      string  `json:"skin,omitempty"`
	SkinLevel int     `json:"skinLevel"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Health    float64 `json:"health"`
	Armor     float64 `json:"armor"`
	Dead      bool    `json:"dead"`
	Kills     int     `json:"kills"`
}

// View returns the renderable snapshot
func (p *LocalPlayer) View() PlayerView {
	return PlayerView{
		ID:        p.ID,
		Username:  p.Username,
		Team:      p.Team,
		Skin:      p.Skin,
		SkinLevel: p.SkinLevel,
		X:         p.X,
		Y:         p.Y,
		Rotation:  p.Rotation,
		Health:    p.Health,
		Armor:     p.Armor,
		Dead:      p.Dead,
		Kills:     p.Kills,
	}
}

// Snapshot returns the player_update payload for this player
func (p *LocalPlayer) Snapshot() PlayerUpdate {
	return PlayerUpdate{
		UserID:    p.ID,
		Username:  p.Username,
		X:         p.X,
		Y:         p.Y,
		Rotation:  p.Rotation,
		Health:    p.Health,
		Team:      p.Team,
		Skin:      p.Skin,
		SkinLevel: p.SkinLevel,
	}
}
