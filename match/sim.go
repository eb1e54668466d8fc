package match

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"math/rand/v2"
	"slices"
	"time"
)

// Match is the synchronous simulation of one player's view of a match.
// It is not safe for concurrent use; Loop owns it from one goroutine.
type Match struct {
	cfg     Config
	self    *LocalPlayer
	sched   *Scheduler
	weapon  *WeaponSystem
	bullets *BulletSimulator
	peers   *Reconciler
	zone    *ZoneController
	pub     Publisher

	loot  []LootItem
	teams Teams
	input Input

	// seen holds every peer that ever sent a snapshot; fallen every peer
	// reported dead, true once the peer confirmed it. Together they decide
	// the outcome after eviction.
	seen      map[string]bool
	fallen    map[string]bool
	credited  map[string]bool
	announced map[string]bool

	tick          uint64
	lastStep      time.Time
	lastBroadcast time.Time
	muzzle        *Muzzle
	started       bool
	over          bool
	winner        Team
}

// NewMatch creates the local simulation for id in room. Loot layout is
// derived from the room code so every peer in the room sees the same map.
func NewMatch(cfg Config, id Identity, room string, pub Publisher) *Match {
	roomSeed := seedOf(room)
	sched := NewScheduler()

	state := DefaultWeaponState()
	if id.SkinLevel > 0 {
		state.SkinLevel = id.SkinLevel
	}
	spreadRng := rand.New(rand.NewPCG(roomSeed, seedOf(id.UserID)))
	lootRng := rand.New(rand.NewPCG(roomSeed, roomSeed>>1))

	center := cfg.Center()
	return &Match{
		cfg:      cfg,
		self:     NewLocalPlayer(id, center.X, center.Y),
		sched:    sched,
		weapon:   NewWeaponSystem(sched, state, spreadRng),
		bullets:  NewBulletSimulator(cfg),
		peers:    NewReconciler(cfg.RemoteTimeout, cfg.Smoothing),
		zone:     NewZoneController(center, cfg.Zone),
		pub:      pub,
		loot:     GenerateLoot(lootRng, cfg.LootCount, cfg.Bounds()),
		seen:      make(map[string]bool),
		fallen:    make(map[string]bool),
		credited:  make(map[string]bool),
		announced: make(map[string]bool),
	}
}

func seedOf(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Self returns the local player's view
func (m *Match) Self() PlayerView {
	return m.self.View()
}

// SetInput replaces the control state used by the next Step
func (m *Match) SetInput(in Input) {
	m.input = in
}

// Reload starts a manual reload
func (m *Match) Reload(now time.Time) bool {
	if m.self.Dead {
		return false
	}
	return m.weapon.StartReload(now, nil)
}

// SwitchWeapon equips weaponID
func (m *Match) SwitchWeapon(weaponID string) bool {
	if m.self.Dead {
		return false
	}
	return m.weapon.SwitchWeapon(weaponID)
}

// StartGame announces the roster to the room. The announcement is also
// applied locally so the host does not wait for its own echo.
func (m *Match) StartGame(ctx context.Context, teams Teams, spawns *SpawnPoints, now time.Time) error {
	ev := GameStarted{Teams: teams, SpawnPoints: spawns}
	if err := ev.validate(); err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}
	m.Handle(ctx, Inbound{From: m.self.ID, Event: ev}, now)
	if m.pub == nil {
		return nil
	}
	return m.pub.Publish(ctx, ev)
}

// Step advances the simulation to now. The first call only establishes the
// clock; later calls integrate the elapsed time, capped at maxFrameDelta.
func (m *Match) Step(ctx context.Context, now time.Time) {
	var dt time.Duration
	if !m.lastStep.IsZero() {
		dt = min(max(now.Sub(m.lastStep), 0), maxFrameDelta)
	}
	m.lastStep = now
	m.tick++
	m.muzzle = nil
	secs := dt.Seconds()

	// Reload completions
	m.sched.RunDue(now)

	m.self.Move(m.input, secs, m.cfg)
	if m.input.Fire && !m.self.Dead {
		m.fire(now)
	}

	for _, h := range m.bullets.Advance(secs, m.peers) {
		m.publish(ctx, PlayerHit{TargetUserID: h.TargetID, Damage: h.Damage, KillerID: h.ShooterID})
		if h.Killed {
			m.markFallen(h.TargetID, false)
			m.credit(h.TargetID)
			if !m.announced[h.TargetID] {
				m.announced[h.TargetID] = true
				m.publish(ctx, PlayerDied{UserID: h.TargetID, KillerID: h.ShooterID})
			}
		}
	}

	m.peers.Tick(now)
	m.stepZone(ctx, dt)
	m.pickupLoot()

	if m.lastBroadcast.IsZero() || now.Sub(m.lastBroadcast) >= m.cfg.BroadcastInterval {
		m.lastBroadcast = now
		m.publish(ctx, m.self.Snapshot())
	}

	m.checkOutcome()
}

func (m *Match) fire(now time.Time) {
	res, ok := m.weapon.TryFire(now, m.self.Pos(), m.self.Rotation, m.self.ID)
	if !ok {
		return
	}
	for _, b := range res.Bullets {
		b.OwnerTeam = m.self.Team
	}
	m.bullets.Add(res.Bullets...)
	m.muzzle = &Muzzle{X: res.MuzzleX, Y: res.MuzzleY, Angle: res.MuzzleAngle}
}

func (m *Match) stepZone(ctx context.Context, dt time.Duration) {
	if m.zone.Running() {
		steps := m.zone.Advance(dt)
		if steps > 0 && m.cfg.ZoneAuthority == ZoneLeaderBroadcast && m.teams.Leader() == m.self.ID {
			m.publish(ctx, m.zone.Update())
		}
	} else if !m.cfg.Zone.DamageBeforeStart {
		return
	}
	if m.self.TakeZoneDamage(m.zone.Damage(m.self.Pos())) {
		m.publish(ctx, PlayerDied{UserID: m.self.ID, KillerID: ZoneKillerID})
	}
}

func (m *Match) pickupLoot() {
	if m.self.Dead {
		return
	}
	m.loot = slices.DeleteFunc(m.loot, func(it LootItem) bool {
		if !CheckCollision(m.self.X, m.self.Y, m.cfg.PlayerRadius, it.X, it.Y, it.Radius) {
			return false
		}
		it.Apply(m.self, m.weapon)
		return true
	})
}

// Handle applies one inbound event. Self-delivered copies of the local
// player's own events are tolerated: none of them double-count.
func (m *Match) Handle(ctx context.Context, in Inbound, now time.Time) {
	switch ev := in.Event.(type) {
	case PlayerUpdate:
		if ev.UserID == m.self.ID || ev.UserID != in.From {
			return
		}
		if ev.Team == TeamNone {
			ev.Team = m.teams.TeamOf(ev.UserID)
		}
		m.seen[ev.UserID] = true
		m.peers.Apply(ev, now)
		if confirmed, ok := m.fallen[ev.UserID]; ok {
			if confirmed {
				m.peers.MarkDead(ev.UserID, true)
			} else if p, _ := m.peers.Get(ev.UserID); !p.Dead {
				// The death was only presumed and the peer says it is alive
				delete(m.fallen, ev.UserID)
			}
		}

	case PlayerHit:
		if ev.TargetUserID != m.self.ID || ev.KillerID == m.self.ID {
			return
		}
		if m.self.Team != TeamNone && m.teamOf(ev.KillerID) == m.self.Team {
			return
		}
		if m.self.TakeHit(ev.Damage) {
			m.publish(ctx, PlayerDied{UserID: m.self.ID, KillerID: ev.KillerID})
		}

	case PlayerDied:
		// Own health is authoritative; reports about us are echoes
		if ev.UserID == m.self.ID {
			return
		}
		confirmed := in.From == ev.UserID
		m.markFallen(ev.UserID, confirmed)
		m.peers.MarkDead(ev.UserID, confirmed)
		if ev.KillerID == m.self.ID {
			m.credit(ev.UserID)
		}

	case GameStarted:
		m.teams = ev.Teams
		if team := ev.Teams.TeamOf(m.self.ID); team != TeamNone {
			m.self.Team = team
		}
		for _, ids := range [][]string{ev.Teams.Blue, ev.Teams.Red} {
			for _, id := range ids {
				m.peers.SetTeam(id, ev.Teams.TeamOf(id))
			}
		}
		if m.started {
			return
		}
		m.started = true
		if ev.SpawnPoints != nil {
			if p, ok := ev.SpawnPoints.For(m.self.Team); ok {
				r := m.cfg.PlayerRadius
				m.self.X = Clamp(p.X, r, m.cfg.MapWidth-r)
				m.self.Y = Clamp(p.Y, r, m.cfg.MapHeight-r)
			}
		}
		m.zone.Start()
		if m.cfg.ZoneAuthority == ZoneLeaderBroadcast && ev.Teams.Leader() != m.self.ID {
			m.zone.Follow()
		}

	case ZoneUpdate:
		if in.From == m.self.ID {
			return
		}
		m.zone.ApplyBroadcast(ev)
	}
}

func (m *Match) teamOf(userID string) Team {
	if t := m.teams.TeamOf(userID); t != TeamNone {
		return t
	}
	if p, ok := m.peers.Get(userID); ok {
		return p.Team
	}
	return TeamNone
}

func (m *Match) markFallen(userID string, confirmed bool) {
	m.fallen[userID] = m.fallen[userID] || confirmed
}

func (m *Match) credit(victim string) {
	if m.credited[victim] {
		return
	}
	m.credited[victim] = true
	m.self.Kills++
}

func (m *Match) alive(userID string) bool {
	if userID == m.self.ID {
		return !m.self.Dead
	}
	if m.fallen[userID] {
		return false
	}
	p, ok := m.peers.Get(userID)
	if !ok {
		// Not heard from yet counts as alive; evicted counts as gone
		return !m.seen[userID]
	}
	// A death only inferred from our own hit test does not decide the match
	return !p.Dead || !p.confirmed
}

func (m *Match) checkOutcome() {
	if !m.started || m.over || !m.teams.Contested() {
		return
	}
	var standing []Team
	for team, ids := range map[Team][]string{TeamBlue: m.teams.Blue, TeamRed: m.teams.Red} {
		if slices.ContainsFunc(ids, m.alive) {
			standing = append(standing, team)
		}
	}
	switch len(standing) {
	case 0:
		m.over = true
	case 1:
		m.over = true
		m.winner = standing[0]
	}
}

func (m *Match) publish(ctx context.Context, ev Event) {
	if m.pub == nil {
		return
	}
	if err := m.pub.Publish(ctx, ev); err != nil && !errors.Is(err, ErrBusClosed) && !errors.Is(err, context.Canceled) {
		log.Printf("match: publish %s: %v", ev.Kind(), err)
	}
}

// Over reports whether a winner (or a draw) has been decided
func (m *Match) Over() (winner Team, over bool) {
	return m.winner, m.over
}

// Frame returns the renderable state at now
func (m *Match) Frame(now time.Time) Frame {
	return Frame{
		Tick:    m.tick,
		Self:    m.self.View(),
		Weapon:  m.weapon.DisplayState(now),
		Bullets: m.bullets.Bullets(),
		Peers:   m.peers.Peers(),
		Zone:    m.zone.State(),
		Loot:    slices.Clone(m.loot),
		Muzzle:  m.muzzle,
		Started: m.started,
		Over:    m.over,
		Winner:  m.winner,
	}
}

// Close cancels the pending reload and drops all transient state
func (m *Match) Close() {
	m.weapon.Close()
	m.sched.Clear()
	m.bullets.Clear()
	m.peers.Clear()
}
