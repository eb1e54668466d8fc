package match

import "math"

// Bullet is a projectile in flight
type Bullet struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	OwnerTeam  Team       `json:"ownerTeam,omitempty"`
	WeaponType WeaponType `json:"weaponType"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	VX         float64    `json:"vx"`
	VY         float64    `json:"vy"`
	Life       float64    `json:"life"` // seconds of flight left
	Damage     float64    `json:"damage"`
}

// NewBullet creates a bullet at (x, y) travelling along angle
func NewBullet(x, y, angle float64, weapon WeaponConfig, ownerID string) *Bullet {
	return &Bullet{
		ID:         GenerateID(),
		OwnerID:    ownerID,
		WeaponType: weapon.Type,
		X:          x,
		Y:          y,
		VX:         math.Cos(angle) * weapon.BulletSpeed,
		VY:         math.Sin(angle) * weapon.BulletSpeed,
		Life:       weapon.BulletLife(),
		Damage:     weapon.Damage,
	}
}

// Update moves the bullet one tick (dt in seconds)
func (b *Bullet) Update(dt float64) {
	b.X += b.VX * dt
	b.Y += b.VY * dt
	b.Life -= dt
}

// Hit records one bullet landing on a peer
type Hit struct {
	TargetID  string
	ShooterID string
	Damage    float64
	Killed    bool
	X, Y      float64
}

// BulletSimulator owns the bullets fired by the local player
type BulletSimulator struct {
	bullets      []*Bullet
	bounds       Rect
	playerRadius float64
	bulletSize   float64
	maxBullets   int
}

// NewBulletSimulator creates a simulator for the configured map
func NewBulletSimulator(cfg Config) *BulletSimulator {
	return &BulletSimulator{
		bounds:       cfg.Bounds(),
		playerRadius: cfg.PlayerRadius,
		bulletSize:   cfg.BulletSize,
		maxBullets:   cfg.MaxBullets,
	}
}

// Add takes ownership of new bullets, dropping any beyond the live cap
func (s *BulletSimulator) Add(bullets ...*Bullet) {
	for _, b := range bullets {
		if s.maxBullets > 0 && len(s.bullets) >= s.maxBullets {
			return
		}
		s.bullets = append(s.bullets, b)
	}
}

// Len returns the number of live bullets
func (s *BulletSimulator) Len() int {
	return len(s.bullets)
}

// Bullets returns copies of the live bullets
func (s *BulletSimulator) Bullets() []Bullet {
	out := make([]Bullet, len(s.bullets))
	for i, b := range s.bullets {
		out[i] = *b
	}
	return out
}

// Advance runs one tick: move every bullet, resolve at most one hit per
// bullet along its path this tick against living opposing peers
// (ascending user id), then drop
// bullets that hit, ran out of life, or left the map.
func (s *BulletSimulator) Advance(dt float64, peers *Reconciler) []Hit {
	var hits []Hit
	targets := peers.sorted()

	kept := s.bullets[:0]
	for _, b := range s.bullets {
		// Only the part of the step the bullet was still alive for counts
		flight := Clamp(b.Life, 0, dt)
		from := Vec2{X: b.X, Y: b.Y}
		to := Vec2{X: b.X + b.VX*flight, Y: b.Y + b.VY*flight}
		b.Update(dt)

		if hit, ok := s.collide(b, from, to, targets, peers); ok {
			hits = append(hits, hit)
			continue
		}
		if b.Life <= 0 || !s.bounds.Contains(b.X, b.Y) {
			continue
		}
		kept = append(kept, b)
	}
	clear(s.bullets[len(kept):])
	s.bullets = kept
	return hits
}

func (s *BulletSimulator) collide(b *Bullet, from, to Vec2, targets []*RemotePlayer, peers *Reconciler) (Hit, bool) {
	for _, p := range targets {
		if p.Dead || p.Health <= 0 || p.UserID == b.OwnerID {
			continue
		}
		if b.OwnerTeam != TeamNone && p.Team == b.OwnerTeam {
			continue
		}
		if !bulletSweepHits(from.X, from.Y, to.X, to.Y, p.X, p.Y, s.playerRadius, s.bulletSize) {
			continue
		}
		killed, _ := peers.ApplyDamage(p.UserID, b.Damage)
		return Hit{
			TargetID:  p.UserID,
			ShooterID: b.OwnerID,
			Damage:    b.Damage,
			Killed:    killed,
			X:         p.X,
			Y:         p.Y,
		}, true
	}
	return Hit{}, false
}

// Clear drops every bullet
func (s *BulletSimulator) Clear() {
	clear(s.bullets)
	s.bullets = s.bullets[:0]
}
