package match

import (
	"testing"
	"time"
)

func TestSchedulerRunsInDueOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	s.Schedule("b", t0.Add(2*time.Second), func() { order = append(order, "b") })
	s.Schedule("a", t0.Add(time.Second), func() { order = append(order, "a") })
	s.Schedule("c", t0.Add(5*time.Second), func() { order = append(order, "c") })

	if next, ok := s.NextDue(); !ok || !next.Equal(t0.Add(time.Second)) {
		t.Errorf("NextDue = %v, %v", next, ok)
	}
	if n := s.RunDue(t0.Add(2 * time.Second)); n != 2 {
		t.Fatalf("expected 2 tasks run, got %d", n)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("unexpected order %v", order)
	}
	if s.Len() != 1 || !s.Pending("c") {
		t.Error("c should still be pending")
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.Schedule("reload", t0, func() { ran = true })
	if !s.Cancel("reload") {
		t.Fatal("cancel should report a pending task")
	}
	if s.Cancel("reload") {
		t.Error("second cancel should report nothing pending")
	}
	s.RunDue(t0.Add(time.Hour))
	if ran {
		t.Error("cancelled task ran")
	}
}

func TestSchedulerCancelInsideBatch(t *testing.T) {
	s := NewScheduler()
	ran := false
	s.Schedule("first", t0, func() { s.Cancel("second") })
	s.Schedule("second", t0.Add(time.Millisecond), func() { ran = true })
	if n := s.RunDue(t0.Add(time.Second)); n != 1 {
		t.Errorf("expected 1 task run, got %d", n)
	}
	if ran {
		t.Error("task cancelled earlier in the batch still ran")
	}
}

func TestSchedulerReplaceKey(t *testing.T) {
	s := NewScheduler()
	var got int
	s.Schedule("k", t0, func() { got = 1 })
	s.Schedule("k", t0.Add(time.Second), func() { got = 2 })
	s.RunDue(t0)
	if got != 0 {
		t.Errorf("replaced task ran, got %d", got)
	}
	s.RunDue(t0.Add(time.Second))
	if got != 2 {
		t.Errorf("expected replacement to run, got %d", got)
	}
}
