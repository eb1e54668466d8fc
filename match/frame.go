package match

// Muzzle is where the last shot left the barrel
type Muzzle struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Frame is everything the rendering collaborator needs after one step.
// It is a copy; holding it does not pin simulation state.
type Frame struct {
	Tick    uint64         `json:"tick"`
	Self    PlayerView     `json:"self"`
	Weapon  WeaponDisplay  `json:"weapon"`
	Bullets []Bullet       `json:"bullets"`
	Peers   []RemotePlayer `json:"peers"`
	Zone    ZoneState      `json:"zone"`
	Loot    []LootItem     `json:"loot"`
	Muzzle  *Muzzle        `json:"muzzle,omitempty"` // set on the tick a shot was fired
	Started bool           `json:"started"`
	Over    bool           `json:"over"`
	Winner  Team           `json:"winner,omitempty"` // empty on a draw
}
