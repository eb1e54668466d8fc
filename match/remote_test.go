package match

import (
	"math"
	"testing"
	"time"
)

func TestReconcilerNewPeerHasNoLag(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", X: 300, Y: 400, Health: 100}, t0)
	p, ok := r.Get("p1")
	if !ok {
		t.Fatal("peer not created")
	}
	if p.X != 300 || p.Y != 400 || p.TargetX != 300 || p.TargetY != 400 {
		t.Errorf("new peer should start at its target, got %+v", p)
	}
}

func TestReconcilerSmoothsTowardTarget(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", X: 0, Y: 0, Health: 100}, t0)
	r.Apply(PlayerUpdate{UserID: "p1", X: 100, Y: 0, Health: 100}, t0)

	r.Tick(t0)
	p, _ := r.Get("p1")
	if math.Abs(p.X-10) > 1e-9 {
		t.Errorf("after one tick X = %f, want 10", p.X)
	}
	r.Tick(t0)
	p, _ = r.Get("p1")
	if math.Abs(p.X-19) > 1e-9 {
		t.Errorf("after two ticks X = %f, want 19", p.X)
	}
}

func TestReconcilerEvictsSilentPeers(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "quiet", Health: 100}, t0)
	r.Apply(PlayerUpdate{UserID: "chatty", Health: 100}, t0)

	r.Apply(PlayerUpdate{UserID: "chatty", Health: 100}, t0.Add(1900*time.Millisecond))
	if ev := r.Tick(t0.Add(2 * time.Second)); len(ev) != 0 {
		t.Errorf("exactly 2s of silence should not evict, got %v", ev)
	}
	ev := r.Tick(t0.Add(2001 * time.Millisecond))
	if len(ev) != 1 || ev[0] != "quiet" {
		t.Fatalf("expected quiet evicted, got %v", ev)
	}
	if _, ok := r.Get("quiet"); ok {
		t.Error("quiet still present")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 peer left, got %d", r.Len())
	}
}

func TestReconcilerPresumedDeathRevivedBySnapshot(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 10}, t0)
	killed, ok := r.ApplyDamage("p1", 25)
	if !ok || !killed {
		t.Fatalf("expected kill, got killed=%v ok=%v", killed, ok)
	}
	if killed, ok := r.ApplyDamage("p1", 25); killed || ok {
		t.Error("dead peer must not be damaged again")
	}

	// Armor on the peer's own client kept it alive
	if !r.Apply(PlayerUpdate{UserID: "p1", X: 50, Health: 40}, t0.Add(time.Millisecond)) {
		t.Error("expected the snapshot to revive the peer")
	}
	p, _ := r.Get("p1")
	if p.Dead || p.Health != 40 || p.TargetX != 50 {
		t.Errorf("peer not restored from its snapshot: %+v", p)
	}

	// Another peer's report is also only a presumption
	r.MarkDead("p1", false)
	if !r.Apply(PlayerUpdate{UserID: "p1", Health: 30}, t0.Add(2*time.Millisecond)) {
		t.Error("relayed death should not be final")
	}
}

func TestReconcilerConfirmedDeathIsFinal(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 100}, t0)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 0}, t0.Add(time.Millisecond))
	if !r.Confirmed("p1") {
		t.Fatal("zero-health snapshot should confirm the death")
	}

	// A stale snapshot from before the death arrives late
	if r.Apply(PlayerUpdate{UserID: "p1", X: 50, Health: 100}, t0.Add(2*time.Millisecond)) {
		t.Error("confirmed death revived")
	}
	p, _ := r.Get("p1")
	if !p.Dead || p.Health != 0 {
		t.Errorf("stale snapshot resurrected peer: %+v", p)
	}
	if p.TargetX != 50 {
		t.Error("stale snapshot should still move the body")
	}

	r.Apply(PlayerUpdate{UserID: "p2", Health: 100}, t0)
	r.MarkDead("p2", true)
	if r.Apply(PlayerUpdate{UserID: "p2", Health: 100}, t0.Add(time.Millisecond)) {
		t.Error("self-announced death revived")
	}
}

func TestReconcilerHealthClamped(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 250}, t0)
	if p, _ := r.Get("p1"); p.Health != 100 {
		t.Errorf("expected clamp to 100, got %f", p.Health)
	}
	r.Apply(PlayerUpdate{UserID: "p2", Health: -5}, t0)
	if p, _ := r.Get("p2"); p.Health != 0 || !p.Dead {
		t.Errorf("expected dead at 0, got %+v", p)
	}
}

func TestReconcilerKeepsKnownTeam(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 100, Team: TeamRed, Skin: "neon"}, t0)
	r.Apply(PlayerUpdate{UserID: "p1", Health: 100}, t0)
	p, _ := r.Get("p1")
	if p.Team != TeamRed || p.Skin != "neon" {
		t.Errorf("empty fields should not clear known ones: %+v", p)
	}
}

func TestReconcilerPeersSorted(t *testing.T) {
	r := NewReconciler(2*time.Second, 0.1)
	for _, id := range []string{"c", "a", "b"} {
		r.Apply(PlayerUpdate{UserID: id, Health: 100}, t0)
	}
	peers := r.Peers()
	if len(peers) != 3 || peers[0].UserID != "a" || peers[2].UserID != "c" {
		t.Errorf("unexpected order %+v", peers)
	}
}
