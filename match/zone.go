package match

import "time"

// ZoneState is the renderable view of the safe zone
type ZoneState struct {
	Center    Vec2    `json:"center"`
	Radius    float64 `json:"radius"`
	Following bool    `json:"following"`
}

// ZoneController shrinks the safe area on a fixed schedule and reports the
// per-tick damage for anyone outside it. The radius never grows and never
// drops below MinRadius.
type ZoneController struct {
	cfg     ZoneConfig
	center  Vec2
	radius  float64
	running bool
	elapsed time.Duration // since the last shrink step

	// following is set once another peer's zone_update overrides local
	// computation; sinceHeard measures how long that peer has been quiet
	following  bool
	sinceHeard time.Duration
}

// NewZoneController creates a zone at its starting radius around center
func NewZoneController(center Vec2, cfg ZoneConfig) *ZoneController {
	if cfg.MinRadius > cfg.StartRadius {
		cfg.MinRadius = cfg.StartRadius
	}
	return &ZoneController{
		cfg:    cfg,
		center: center,
		radius: cfg.StartRadius,
	}
}

// Start begins the shrink schedule. Calling it again has no effect.
func (z *ZoneController) Start() {
	z.running = true
}

// Running reports whether the shrink schedule has started
func (z *ZoneController) Running() bool {
	return z.running
}

// Follow stops local shrinking until broadcasts arrive or the leader goes quiet
func (z *ZoneController) Follow() {
	z.following = true
	z.sinceHeard = 0
}

// Advance moves the schedule forward by dt and returns how many shrink
// steps were taken. A follower only counts silence; after two intervals
// without a broadcast it resumes computing the zone itself.
func (z *ZoneController) Advance(dt time.Duration) int {
	if !z.running || dt <= 0 {
		return 0
	}
	if z.following {
		z.sinceHeard += dt
		if z.cfg.ShrinkInterval <= 0 || z.sinceHeard < 2*z.cfg.ShrinkInterval {
			return 0
		}
		z.following = false
		z.elapsed = 0
	}
	if z.cfg.ShrinkInterval <= 0 {
		return 0
	}
	z.elapsed += dt
	steps := 0
	for z.elapsed >= z.cfg.ShrinkInterval {
		z.elapsed -= z.cfg.ShrinkInterval
		if z.Shrink() {
			steps++
		}
	}
	return steps
}

// Shrink applies one step, floored at MinRadius. It returns false once the
// floor has been reached.
func (z *ZoneController) Shrink() bool {
	if z.radius <= z.cfg.MinRadius {
		return false
	}
	z.radius = max(z.cfg.MinRadius, z.radius-z.cfg.ShrinkStep)
	return true
}

// Contains reports whether p is inside or on the zone edge
func (z *ZoneController) Contains(p Vec2) bool {
	return Distance(p.X, p.Y, z.center.X, z.center.Y) <= z.radius
}

// Damage returns the health a player at p loses this tick
func (z *ZoneController) Damage(p Vec2) float64 {
	if z.Contains(p) {
		return 0
	}
	return z.cfg.DamagePerTick
}

// ApplyBroadcast adopts a zone_update from the leader. The center is taken
// verbatim; the radius is clamped so the zone still never grows.
func (z *ZoneController) ApplyBroadcast(u ZoneUpdate) {
	z.center = u.Center
	z.radius = Clamp(u.Radius, z.cfg.MinRadius, z.radius)
	z.running = true
	z.Follow()
}

// State returns the current zone view
func (z *ZoneController) State() ZoneState {
	return ZoneState{
		Center:    z.center,
		Radius:    z.radius,
		Following: z.following,
	}
}

// Update returns the zone_update payload describing the current zone
func (z *ZoneController) Update() ZoneUpdate {
	return ZoneUpdate{Center: z.center, Radius: z.radius}
}
