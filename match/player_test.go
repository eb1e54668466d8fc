package match

import (
	"math"
	"testing"
)

func TestTakeHitArmorAbsorbsHalf(t *testing.T) {
	p := NewLocalPlayer(Identity{UserID: "me"}, 100, 100)
	p.Armor = 50
	p.TakeHit(40)
	if p.Armor != 30 || p.Health != 80 {
		t.Errorf("got armor %f health %f, want 30 and 80", p.Armor, p.Health)
	}

	p.Armor = 5
	p.TakeHit(40)
	if p.Armor != 0 || p.Health != 45 {
		t.Errorf("got armor %f health %f, want 0 and 45", p.Armor, p.Health)
	}
}

func TestTakeHitDiesOnce(t *testing.T) {
	p := NewLocalPlayer(Identity{UserID: "me"}, 100, 100)
	p.Health = 10
	if !p.TakeHit(30) {
		t.Fatal("expected the killing hit to report death")
	}
	if p.Health != 0 || !p.Dead {
		t.Errorf("expected dead at 0, got %f", p.Health)
	}
	if p.TakeHit(30) || p.TakeZoneDamage(1) {
		t.Error("dead player must not die again")
	}
	if p.Health != 0 {
		t.Errorf("health went to %f", p.Health)
	}
}

func TestHealAndArmorCapped(t *testing.T) {
	p := NewLocalPlayer(Identity{UserID: "me"}, 100, 100)
	p.Health = 90
	p.Heal(25)
	p.AddArmor(150)
	if p.Health != 100 || p.Armor != 100 {
		t.Errorf("got health %f armor %f, want both 100", p.Health, p.Armor)
	}
}

func TestMoveClampsToMap(t *testing.T) {
	cfg := DefaultConfig()
	p := NewLocalPlayer(Identity{UserID: "me"}, 20, 20)
	for range 60 {
		p.Move(Input{Move: Vec2{X: -1, Y: -1}}, 1.0/60, cfg)
	}
	if p.X != cfg.PlayerRadius || p.Y != cfg.PlayerRadius {
		t.Errorf("expected clamp at radius, got (%f, %f)", p.X, p.Y)
	}
	if math.Abs(p.Rotation-(-3*math.Pi/4)) > 1e-9 {
		t.Errorf("rotation %f should face the stick", p.Rotation)
	}
}

func TestMoveCoastsToStop(t *testing.T) {
	cfg := DefaultConfig()
	p := NewLocalPlayer(Identity{UserID: "me"}, 1000, 1000)
	p.Move(Input{Move: Vec2{X: 1}}, 1.0/60, cfg)
	if p.VX != cfg.PlayerSpeed {
		t.Fatalf("VX = %f, want %f", p.VX, cfg.PlayerSpeed)
	}
	for range 200 {
		p.Move(Input{}, 1.0/60, cfg)
	}
	if p.VX != 0 {
		t.Errorf("player should stop when the stick is released, VX = %f", p.VX)
	}
}

func TestSnapshotCarriesIdentity(t *testing.T) {
	p := NewLocalPlayer(Identity{UserID: "me", Username: "Kile", Team: TeamRed, Skin: "gold", SkinLevel: 9}, 10, 20)
	s := p.Snapshot()
	if s.UserID != "me" || s.Username != "Kile" || s.Team != TeamRed || s.X != 10 || s.Y != 20 || s.Health != 100 {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if s.SkinLevel != 5 {
		t.Errorf("skin level should clamp to 5, got %d", s.SkinLevel)
	}
}
