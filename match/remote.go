package match

import (
	"slices"
	"strings"
	"time"
)

// RemotePlayer is the local view of a peer, rebuilt from its snapshots
type RemotePlayer struct {
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	TargetX    float64   `json:"targetX"`
	TargetY    float64   `json:"targetY"`
	Rotation   float64   `json:"rotation"`
	Health     float64   `json:"health"`
	Team       Team      `json:"team"`
	Skin       string    `json:"skin,omitempty"`
	SkinLevel  int       `json:"skinLevel,omitempty"`
	LastUpdate time.Time `json:"lastUpdate"`
	Dead       bool      `json:"dead"`

	// confirmed is set when the peer itself reported the death
	confirmed bool
}

// Reconciler keeps the peer table. Snapshots set targets, Tick smooths
// rendered positions toward them and evicts peers that went silent.
type Reconciler struct {
	peers     map[string]*RemotePlayer
	timeout   time.Duration
	smoothing float64
}

// NewReconciler creates an empty peer table
func NewReconciler(timeout time.Duration, smoothing float64) *Reconciler {
	return &Reconciler{
		peers:     make(map[string]*RemotePlayer),
		timeout:   timeout,
		smoothing: Clamp(smoothing, 0, 1),
	}
}

// Apply ingests a player_update snapshot received at now. A peer only
// presumed dead from local hit tests is brought back by a snapshot that
// reports it alive; revived reports that case.
func (r *Reconciler) Apply(u PlayerUpdate, now time.Time) (revived bool) {
	health := Clamp(u.Health, 0, 100)
	p, ok := r.peers[u.UserID]
	if !ok {
		p = &RemotePlayer{
			UserID: u.UserID,
			X:      u.X,
			Y:      u.Y,
		}
		r.peers[u.UserID] = p
	}
	p.Username = u.Username
	p.TargetX = u.X
	p.TargetY = u.Y
	p.Rotation = u.Rotation
	p.LastUpdate = now
	if u.Team != TeamNone {
		p.Team = u.Team
	}
	if u.Skin != "" {
		p.Skin = u.Skin
	}
	if u.SkinLevel > 0 {
		p.SkinLevel = u.SkinLevel
	}
	switch {
	case health <= 0:
		p.Dead, p.confirmed = true, true
	case p.Dead && !p.confirmed:
		p.Dead = false
		revived = true
	}
	// Nobody respawns: a self-reported death is final
	if p.Dead {
		p.Health = 0
	} else {
		p.Health = health
	}
	return revived
}

// Tick interpolates every peer toward its target and evicts those silent
// for longer than the timeout. It returns the evicted ids.
func (r *Reconciler) Tick(now time.Time) []string {
	var evicted []string
	for id, p := range r.peers {
		p.X += (p.TargetX - p.X) * r.smoothing
		p.Y += (p.TargetY - p.Y) * r.smoothing
		if now.Sub(p.LastUpdate) > r.timeout {
			delete(r.peers, id)
			evicted = append(evicted, id)
		}
	}
	slices.Sort(evicted)
	return evicted
}

// ApplyDamage reduces a living peer's health, clamped at zero. killed is
// true only on the hit that takes the peer to zero. Such a death is only
// presumed until the peer confirms it.
func (r *Reconciler) ApplyDamage(userID string, damage float64) (killed bool, ok bool) {
	p, found := r.peers[userID]
	if !found || p.Dead {
		return false, false
	}
	p.Health = max(0, p.Health-max(damage, 0))
	if p.Health <= 0 {
		p.Dead = true
		return true, true
	}
	return false, true
}

// MarkDead records a peer as dead and reports whether it was alive.
// confirmed marks a death the peer announced itself.
func (r *Reconciler) MarkDead(userID string, confirmed bool) bool {
	p, ok := r.peers[userID]
	if !ok {
		return false
	}
	if confirmed {
		p.confirmed = true
	}
	if p.Dead {
		return false
	}
	p.Dead = true
	p.Health = 0
	return true
}

// Confirmed reports whether the peer announced its own death
func (r *Reconciler) Confirmed(userID string) bool {
	p, ok := r.peers[userID]
	return ok && p.confirmed
}

// SetTeam assigns the team of a known peer
func (r *Reconciler) SetTeam(userID string, team Team) {
	if p, ok := r.peers[userID]; ok && team != TeamNone {
		p.Team = team
	}
}

// Get returns a copy of one peer
func (r *Reconciler) Get(userID string) (RemotePlayer, bool) {
	p, ok := r.peers[userID]
	if !ok {
		return RemotePlayer{}, false
	}
	return *p, true
}

// Len returns the number of tracked peers
func (r *Reconciler) Len() int {
	return len(r.peers)
}

// Peers returns copies of every peer in ascending user id order
func (r *Reconciler) Peers() []RemotePlayer {
	sorted := r.sorted()
	out := make([]RemotePlayer, len(sorted))
	for i, p := range sorted {
		out[i] = *p
	}
	return out
}

// sorted returns the live peer records in ascending user id order,
// the deterministic collision order
func (r *Reconciler) sorted() []*RemotePlayer {
	out := make([]*RemotePlayer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *RemotePlayer) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return out
}

// Clear drops every peer
func (r *Reconciler) Clear() {
	clear(r.peers)
}
