package match

import (
	"sort"
	"time"
)

// PlayerRadius is the collision radius of every player body
const PlayerRadius = 15.0

// muzzleGap is how far past the body edge bullets spawn
const muzzleGap = 4.0

// WeaponType identifies the weapon family
type WeaponType string

const (
	WeaponAssaultRifle WeaponType = "assault_rifle"
	WeaponSMG          WeaponType = "smg"
	WeaponSniper       WeaponType = "sniper"
	WeaponShotgun      WeaponType = "shotgun"
)

// AmmoType identifies a reserve ammo pool
type AmmoType string

const (
	Ammo556 AmmoType = "5.56mm"
	Ammo9mm AmmoType = "9mm"
	Ammo300 AmmoType = ".300mag"
	Ammo12g AmmoType = "12gauge"
)

// AmmoTypes lists every reserve pool a weapon state tracks
var AmmoTypes = []AmmoType{Ammo556, Ammo9mm, Ammo300, Ammo12g}

// WeaponConfig holds the immutable stats for one weapon
type WeaponConfig struct {
	ID             string
	Name           string
	Type           WeaponType
	Damage         float64
	MagazineSize   int
	ReloadTime     time.Duration
	FireRate       time.Duration // minimum interval between shots
	BulletSpeed    float64       // px/s
	BulletRange    float64       // px
	Spread         float64       // full cone angle in radians
	PelletsPerShot int
	AmmoType       AmmoType
}

// BulletLife returns how long one of this weapon's bullets flies, in seconds
func (w WeaponConfig) BulletLife() float64 {
	if w.BulletSpeed <= 0 {
		return 0
	}
	return w.BulletRange / w.BulletSpeed
}

// Weapons is the catalog, keyed by weapon id
var Weapons = map[string]WeaponConfig{
	// Assault rifle: the default, balanced
	"assault_rifle": {
		ID: "assault_rifle", Name: "Assault Rifle", Type: WeaponAssaultRifle,
		Damage: 20, MagazineSize: 30, ReloadTime: 2000 * time.Millisecond,
		FireRate: 100 * time.Millisecond, BulletSpeed: 900, BulletRange: 700,
		Spread: 0.06, PelletsPerShot: 1, AmmoType: Ammo556,
	},
	// SMG: fast, short range, wide cone
	"smg": {
		ID: "smg", Name: "SMG", Type: WeaponSMG,
		Damage: 14, MagazineSize: 35, ReloadTime: 1600 * time.Millisecond,
		FireRate: 70 * time.Millisecond, BulletSpeed: 800, BulletRange: 450,
		Spread: 0.12, PelletsPerShot: 1, AmmoType: Ammo9mm,
	},
	// Sniper: slow, long range, no spread
	"sniper": {
		ID: "sniper", Name: "Sniper", Type: WeaponSniper,
		Damage: 80, MagazineSize: 5, ReloadTime: 3000 * time.Millisecond,
		FireRate: 1200 * time.Millisecond, BulletSpeed: 1600, BulletRange: 1400,
		Spread: 0, PelletsPerShot: 1, AmmoType: Ammo300,
	},
	// Shotgun: pellet spread, close range
	"shotgun": {
		ID: "shotgun", Name: "Shotgun", Type: WeaponShotgun,
		Damage: 12, MagazineSize: 6, ReloadTime: 2500 * time.Millisecond,
		FireRate: 800 * time.Millisecond, BulletSpeed: 700, BulletRange: 300,
		Spread: 0.5, PelletsPerShot: 8, AmmoType: Ammo12g,
	},
}

// DefaultWeaponID is what every player spawns with
const DefaultWeaponID = "assault_rifle"

// WeaponIDs returns the catalog ids in sorted order
func WeaponIDs() []string {
	ids := make([]string, 0, len(Weapons))
	for id := range Weapons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WeaponState is one player's mutable weapon state
type WeaponState struct {
	Current         WeaponConfig
	AmmoInMag       int
	ReserveAmmo     map[AmmoType]int
	IsReloading     bool
	ReloadStartTime time.Time
	LastShotTime    time.Time
	SkinLevel       int // cosmetic only, 1-5
}

// DefaultWeaponState returns the match-start loadout
func DefaultWeaponState() WeaponState {
	w := Weapons[DefaultWeaponID]
	reserve := make(map[AmmoType]int, len(AmmoTypes))
	for _, t := range AmmoTypes {
		reserve[t] = 0
	}
	reserve[w.AmmoType] = 90
	return WeaponState{
		Current:     w,
		AmmoInMag:   w.MagazineSize,
		ReserveAmmo: reserve,
		SkinLevel:   1,
	}
}

// clone returns a deep copy so callers can't mutate the reserve map
func (s WeaponState) clone() WeaponState {
	reserve := make(map[AmmoType]int, len(s.ReserveAmmo))
	for k, v := range s.ReserveAmmo {
		reserve[k] = v
	}
	s.ReserveAmmo = reserve
	return s
}
