package match

import (
	"math"
	"math/rand/v2"
	"time"
)

// FireResult is what a successful trigger pull produces
type FireResult struct {
	Bullets     []*Bullet
	MuzzleX     float64
	MuzzleY     float64
	MuzzleAngle float64
}

// WeaponDisplay is the HUD view of the weapon
type WeaponDisplay struct {
	Name           string     `json:"name"`
	WeaponID       string     `json:"weaponId"`
	Type           WeaponType `json:"type"`
	AmmoInMag      int        `json:"ammoInMag"`
	MagSize        int        `json:"magSize"`
	ReserveAmmo    int        `json:"reserveAmmo"`
	IsReloading    bool       `json:"isReloading"`
	ReloadProgress float64    `json:"reloadProgress"`
	SkinLevel      int        `json:"skinLevel"`
}

// WeaponSystem owns one player's weapon, ammo and reload state.
//
// States: idle, firing cooldown (LastShotTime within FireRate), reloading.
// Reload completion is a Scheduler task keyed to this instance, so it only
// ever runs on the goroutine that drives the Scheduler.
type WeaponSystem struct {
	state    WeaponState
	sched    *Scheduler
	key      TaskKey
	rng      *rand.Rand
	onReload func()
}

// NewWeaponSystem creates a WeaponSystem from an initial state
func NewWeaponSystem(sched *Scheduler, state WeaponState, rng *rand.Rand) *WeaponSystem {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	state = state.clone()
	if state.ReserveAmmo == nil {
		state.ReserveAmmo = make(map[AmmoType]int)
	}
	state.SkinLevel = int(Clamp(float64(state.SkinLevel), 1, 5))
	state.AmmoInMag = int(Clamp(float64(state.AmmoInMag), 0, float64(state.Current.MagazineSize)))
	return &WeaponSystem{
		state: state,
		sched: sched,
		key:   TaskKey("reload/" + GenerateID()),
		rng:   rng,
	}
}

// Weapon returns the active weapon config
func (w *WeaponSystem) Weapon() WeaponConfig {
	return w.state.Current
}

// State returns a copy of the weapon state
func (w *WeaponSystem) State() WeaponState {
	return w.state.clone()
}

// CanFire reports whether a round is chambered and no reload is running
func (w *WeaponSystem) CanFire() bool {
	return !w.state.IsReloading && w.state.AmmoInMag > 0
}

// NeedsReload reports an empty magazine with reserve available
func (w *WeaponSystem) NeedsReload() bool {
	return w.state.AmmoInMag == 0 && w.state.ReserveAmmo[w.state.Current.AmmoType] > 0
}

// TryFire pulls the trigger at now. It returns false when reloading, on
// cooldown, or when the magazine is empty; an empty magazine also starts
// a reload.
func (w *WeaponSystem) TryFire(now time.Time, origin Vec2, angle float64, ownerID string) (FireResult, bool) {
	if w.state.IsReloading {
		return FireResult{}, false
	}
	if w.state.AmmoInMag <= 0 {
		w.StartReload(now, nil)
		return FireResult{}, false
	}
	weapon := w.state.Current
	if !w.state.LastShotTime.IsZero() && now.Sub(w.state.LastShotTime) < weapon.FireRate {
		return FireResult{}, false
	}

	w.state.LastShotTime = now
	w.state.AmmoInMag--

	muzzleDist := PlayerRadius + muzzleGap
	res := FireResult{
		MuzzleX:     origin.X + math.Cos(angle)*muzzleDist,
		MuzzleY:     origin.Y + math.Sin(angle)*muzzleDist,
		MuzzleAngle: angle,
	}
	pellets := max(weapon.PelletsPerShot, 1)
	res.Bullets = make([]*Bullet, 0, pellets)
	for range pellets {
		a := angle + (w.rng.Float64()-0.5)*weapon.Spread
		res.Bullets = append(res.Bullets, NewBullet(res.MuzzleX, res.MuzzleY, a, weapon, ownerID))
	}
	return res, true
}

// StartReload begins a reload at now. It fails when already reloading,
// when the reserve for the weapon's ammo type is empty, or when the
// magazine is full. onComplete runs after the rounds are transferred.
func (w *WeaponSystem) StartReload(now time.Time, onComplete func()) bool {
	if w.state.IsReloading {
		return false
	}
	weapon := w.state.Current
	if w.state.ReserveAmmo[weapon.AmmoType] <= 0 {
		return false
	}
	if w.state.AmmoInMag >= weapon.MagazineSize {
		return false
	}

	w.state.IsReloading = true
	w.state.ReloadStartTime = now
	w.onReload = onComplete
	w.sched.Schedule(w.key, now.Add(weapon.ReloadTime), w.completeReload)
	return true
}

func (w *WeaponSystem) completeReload() {
	weapon := w.state.Current
	needed := weapon.MagazineSize - w.state.AmmoInMag
	available := w.state.ReserveAmmo[weapon.AmmoType]
	toLoad := max(min(needed, available), 0)

	w.state.AmmoInMag += toLoad
	w.state.ReserveAmmo[weapon.AmmoType] -= toLoad
	w.state.IsReloading = false

	cb := w.onReload
	w.onReload = nil
	if cb != nil {
		cb()
	}
}

// CancelReload abandons a running reload without transferring any rounds
func (w *WeaponSystem) CancelReload() {
	w.sched.Cancel(w.key)
	w.state.IsReloading = false
	w.onReload = nil
}

// SwitchWeapon equips weaponID. Ammo above the new magazine size is lost.
func (w *WeaponSystem) SwitchWeapon(weaponID string) bool {
	weapon, ok := Weapons[weaponID]
	if !ok {
		return false
	}
	w.CancelReload()
	w.state.Current = weapon
	w.state.AmmoInMag = min(w.state.AmmoInMag, weapon.MagazineSize)
	return true
}

// AddAmmo banks amount rounds of ammoType. There is no reserve cap.
func (w *WeaponSystem) AddAmmo(ammoType AmmoType, amount int) {
	if amount <= 0 {
		return
	}
	w.state.ReserveAmmo[ammoType] += amount
}

// ReloadProgress returns the elapsed reload fraction in [0, 1]
func (w *WeaponSystem) ReloadProgress(now time.Time) float64 {
	if !w.state.IsReloading {
		return 0
	}
	total := w.state.Current.ReloadTime
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(w.state.ReloadStartTime)
	return Clamp(float64(elapsed)/float64(total), 0, 1)
}

// DisplayState returns the HUD snapshot at now
func (w *WeaponSystem) DisplayState(now time.Time) WeaponDisplay {
	weapon := w.state.Current
	return WeaponDisplay{
		Name:           weapon.Name,
		WeaponID:       weapon.ID,
		Type:           weapon.Type,
		AmmoInMag:      w.state.AmmoInMag,
		MagSize:        weapon.MagazineSize,
		ReserveAmmo:    w.state.ReserveAmmo[weapon.AmmoType],
		IsReloading:    w.state.IsReloading,
		ReloadProgress: w.ReloadProgress(now),
		SkinLevel:      w.state.SkinLevel,
	}
}

// Close cancels any pending reload
func (w *WeaponSystem) Close() {
	w.CancelReload()
}
