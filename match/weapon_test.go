package match

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var t0 = time.Unix(1_700_000_000, 0)

func newTestWeapon(state WeaponState) (*WeaponSystem, *Scheduler) {
	sched := NewScheduler()
	return NewWeaponSystem(sched, state, rand.New(rand.NewPCG(1, 2))), sched
}

func TestRifleEmptiesMagazineThenReloads(t *testing.T) {
	ws, sched := newTestWeapon(DefaultWeaponState())
	now := t0
	for i := range 30 {
		if _, ok := ws.TryFire(now, Vec2{}, 0, "me"); !ok {
			t.Fatalf("shot %d should fire", i+1)
		}
		now = now.Add(100 * time.Millisecond)
	}
	if ws.State().AmmoInMag != 0 {
		t.Fatalf("expected empty magazine, got %d", ws.State().AmmoInMag)
	}

	if _, ok := ws.TryFire(now, Vec2{}, 0, "me"); ok {
		t.Fatal("31st shot should not fire")
	}
	if !ws.State().IsReloading {
		t.Fatal("empty trigger pull should start a reload")
	}

	sched.RunDue(now.Add(1999 * time.Millisecond))
	if !ws.State().IsReloading {
		t.Fatal("reload should still be running before 2s")
	}
	sched.RunDue(now.Add(2 * time.Second))
	st := ws.State()
	if st.IsReloading {
		t.Error("reload should be done")
	}
	if st.AmmoInMag != 30 {
		t.Errorf("expected 30 in magazine, got %d", st.AmmoInMag)
	}
	if st.ReserveAmmo[Ammo556] != 60 {
		t.Errorf("expected 60 in reserve, got %d", st.ReserveAmmo[Ammo556])
	}
}

func TestTryFireRespectsFireRate(t *testing.T) {
	ws, _ := newTestWeapon(DefaultWeaponState())
	if _, ok := ws.TryFire(t0, Vec2{}, 0, "me"); !ok {
		t.Fatal("first shot should fire")
	}
	if _, ok := ws.TryFire(t0.Add(50*time.Millisecond), Vec2{}, 0, "me"); ok {
		t.Error("shot inside the fire interval should fail")
	}
	if _, ok := ws.TryFire(t0.Add(100*time.Millisecond), Vec2{}, 0, "me"); !ok {
		t.Error("shot after the fire interval should fire")
	}
	if got := ws.State().AmmoInMag; got != 28 {
		t.Errorf("expected 28 rounds left, got %d", got)
	}
}

func TestTryFireMuzzleAndBullet(t *testing.T) {
	ws, _ := newTestWeapon(DefaultWeaponState())
	res, ok := ws.TryFire(t0, Vec2{X: 100, Y: 100}, 0, "me")
	if !ok {
		t.Fatal("expected shot")
	}
	if math.Abs(res.MuzzleX-119) > 1e-9 || math.Abs(res.MuzzleY-100) > 1e-9 {
		t.Errorf("muzzle at (%f, %f), want (119, 100)", res.MuzzleX, res.MuzzleY)
	}
	if len(res.Bullets) != 1 {
		t.Fatalf("expected 1 bullet, got %d", len(res.Bullets))
	}
	b := res.Bullets[0]
	if b.OwnerID != "me" || b.Damage != 20 || b.WeaponType != WeaponAssaultRifle {
		t.Errorf("unexpected bullet %+v", b)
	}
	if want := 700.0 / 900.0; math.Abs(b.Life-want) > 1e-9 {
		t.Errorf("life %f, want %f", b.Life, want)
	}
}

func TestShotgunPelletsStayInsideSpread(t *testing.T) {
	state := DefaultWeaponState()
	state.Current = Weapons["shotgun"]
	state.AmmoInMag = 6
	ws, _ := newTestWeapon(state)

	aim := 1.0
	res, ok := ws.TryFire(t0, Vec2{X: 500, Y: 500}, aim, "me")
	if !ok {
		t.Fatal("expected shot")
	}
	if len(res.Bullets) != 8 {
		t.Fatalf("expected 8 pellets, got %d", len(res.Bullets))
	}
	half := Weapons["shotgun"].Spread / 2
	for _, b := range res.Bullets {
		a := math.Atan2(b.VY, b.VX)
		if d := math.Abs(NormalizeAngle(a - aim)); d > half+1e-9 {
			t.Errorf("pellet off by %f, max %f", d, half)
		}
	}
	if ws.State().AmmoInMag != 5 {
		t.Errorf("a shotgun shot uses one shell, got %d left", ws.State().AmmoInMag)
	}
}

func TestStartReloadRejections(t *testing.T) {
	ws, _ := newTestWeapon(DefaultWeaponState())
	if ws.StartReload(t0, nil) {
		t.Error("full magazine should not reload")
	}

	empty := DefaultWeaponState()
	empty.AmmoInMag = 3
	empty.ReserveAmmo[Ammo556] = 0
	ws, _ = newTestWeapon(empty)
	if ws.StartReload(t0, nil) {
		t.Error("no reserve should not reload")
	}

	partial := DefaultWeaponState()
	partial.AmmoInMag = 3
	ws, _ = newTestWeapon(partial)
	if !ws.StartReload(t0, nil) {
		t.Fatal("partial magazine should reload")
	}
	if ws.StartReload(t0, nil) {
		t.Error("second reload should fail while reloading")
	}
	if _, ok := ws.TryFire(t0.Add(time.Second), Vec2{}, 0, "me"); ok {
		t.Error("cannot fire while reloading")
	}
}

func TestReloadTransfersWhatReserveHas(t *testing.T) {
	state := DefaultWeaponState()
	state.AmmoInMag = 0
	state.ReserveAmmo[Ammo556] = 10
	ws, sched := newTestWeapon(state)

	called := false
	if !ws.StartReload(t0, func() { called = true }) {
		t.Fatal("expected reload")
	}
	sched.RunDue(t0.Add(2 * time.Second))
	st := ws.State()
	if st.AmmoInMag != 10 || st.ReserveAmmo[Ammo556] != 0 {
		t.Errorf("got mag %d reserve %d, want 10 and 0", st.AmmoInMag, st.ReserveAmmo[Ammo556])
	}
	if !called {
		t.Error("completion callback did not run")
	}
}

func TestSwitchWeaponCancelsReload(t *testing.T) {
	state := DefaultWeaponState()
	state.AmmoInMag = 20
	ws, sched := newTestWeapon(state)

	called := false
	ws.StartReload(t0, func() { called = true })
	if !ws.SwitchWeapon("sniper") {
		t.Fatal("switch to sniper should succeed")
	}
	if n := sched.RunDue(t0.Add(10 * time.Second)); n != 0 {
		t.Errorf("cancelled reload ran %d tasks", n)
	}
	if called {
		t.Error("completion callback ran after cancel")
	}
	st := ws.State()
	if st.IsReloading {
		t.Error("switch should clear reloading")
	}
	if st.AmmoInMag != 5 {
		t.Errorf("magazine should be capped to 5, got %d", st.AmmoInMag)
	}
	if st.ReserveAmmo[Ammo556] != 90 {
		t.Errorf("capped rounds must not go back to reserve, got %d", st.ReserveAmmo[Ammo556])
	}
}

func TestSwitchWeaponUnknown(t *testing.T) {
	ws, _ := newTestWeapon(DefaultWeaponState())
	if ws.SwitchWeapon("railgun") {
		t.Error("unknown weapon should fail")
	}
	if ws.Weapon().ID != DefaultWeaponID {
		t.Errorf("weapon changed to %s", ws.Weapon().ID)
	}
}

func TestAddAmmoIgnoresNonPositive(t *testing.T) {
	ws, _ := newTestWeapon(DefaultWeaponState())
	ws.AddAmmo(Ammo9mm, -5)
	ws.AddAmmo(Ammo9mm, 0)
	ws.AddAmmo(Ammo9mm, 35)
	if got := ws.State().ReserveAmmo[Ammo9mm]; got != 35 {
		t.Errorf("expected 35, got %d", got)
	}
}

func TestReloadProgress(t *testing.T) {
	state := DefaultWeaponState()
	state.AmmoInMag = 0
	ws, _ := newTestWeapon(state)
	ws.StartReload(t0, nil)
	if p := ws.ReloadProgress(t0.Add(time.Second)); math.Abs(p-0.5) > 1e-9 {
		t.Errorf("progress %f, want 0.5", p)
	}
	if p := ws.ReloadProgress(t0.Add(5 * time.Second)); p != 1 {
		t.Errorf("progress %f, want 1", p)
	}
	d := ws.DisplayState(t0)
	if !d.IsReloading || d.MagSize != 30 || d.ReserveAmmo != 90 {
		t.Errorf("unexpected display %+v", d)
	}
}

func TestWeaponAmmoInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws, sched := newTestWeapon(DefaultWeaponState())
		now := t0
		ids := WeaponIDs()
		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for range steps {
			now = now.Add(time.Duration(rapid.IntRange(0, 3000).Draw(t, "ms")) * time.Millisecond)
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				ws.TryFire(now, Vec2{}, 0, "me")
			case 1:
				ws.StartReload(now, nil)
			case 2:
				ws.SwitchWeapon(rapid.SampledFrom(ids).Draw(t, "weapon"))
			case 3:
				ws.AddAmmo(rapid.SampledFrom(AmmoTypes).Draw(t, "ammo"), rapid.IntRange(-10, 50).Draw(t, "amount"))
			case 4:
				sched.RunDue(now)
			}

			st := ws.State()
			if st.AmmoInMag < 0 || st.AmmoInMag > st.Current.MagazineSize {
				t.Fatalf("ammoInMag %d outside [0, %d]", st.AmmoInMag, st.Current.MagazineSize)
			}
			for ammo, n := range st.ReserveAmmo {
				if n < 0 {
					t.Fatalf("reserve %s negative: %d", ammo, n)
				}
			}
			if st.IsReloading != sched.Pending(ws.key) {
				t.Fatalf("reloading=%v but task pending=%v", st.IsReloading, sched.Pending(ws.key))
			}
		}
	})
}

func TestCanFireAndNeedsReload(t *testing.T) {
	state := DefaultWeaponState()
	state.AmmoInMag = 0
	ws, _ := newTestWeapon(state)
	if ws.CanFire() || !ws.NeedsReload() {
		t.Fatalf("empty mag: canFire=%v needsReload=%v", ws.CanFire(), ws.NeedsReload())
	}
	ws.StartReload(t0, nil)
	if ws.CanFire() {
		t.Error("can fire while reloading")
	}

	dry := DefaultWeaponState()
	dry.AmmoInMag = 0
	dry.ReserveAmmo[dry.Current.AmmoType] = 0
	if ws, _ := newTestWeapon(dry); ws.NeedsReload() {
		t.Error("needs reload with nothing in reserve")
	}
}
