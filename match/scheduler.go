package match

import (
	"sort"
	"time"
)

// TaskKey names a deferred task. Scheduling under an existing key replaces it.
type TaskKey string

type scheduledTask struct {
	due time.Time
	seq uint64
	fn  func()
}

// Scheduler runs keyed one-shot tasks once their due time has passed.
// It is not safe for concurrent use; the owning loop goroutine drives it.
type Scheduler struct {
	tasks map[TaskKey]scheduledTask
	seq   uint64
}

// NewScheduler creates an empty Scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[TaskKey]scheduledTask)}
}

// Schedule registers fn to run at or after due
func (s *Scheduler) Schedule(key TaskKey, due time.Time, fn func()) {
	s.seq++
	s.tasks[key] = scheduledTask{due: due, seq: s.seq, fn: fn}
}

// Cancel drops the task under key and reports whether one was pending
func (s *Scheduler) Cancel(key TaskKey) bool {
	if _, ok := s.tasks[key]; !ok {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Pending reports whether a task is scheduled under key
func (s *Scheduler) Pending(key TaskKey) bool {
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of pending tasks
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// NextDue returns the earliest due time among pending tasks
func (s *Scheduler) NextDue() (time.Time, bool) {
	var next time.Time
	found := false
	for _, t := range s.tasks {
		if !found || t.due.Before(next) {
			next = t.due
			found = true
		}
	}
	return next, found
}

// RunDue runs every task due at now, earliest first, and returns how many ran.
// A task cancelled or rescheduled by an earlier task in the same batch is skipped.
func (s *Scheduler) RunDue(now time.Time) int {
	type dueTask struct {
		key TaskKey
		scheduledTask
	}
	var batch []dueTask
	for k, t := range s.tasks {
		if !t.due.After(now) {
			batch = append(batch, dueTask{key: k, scheduledTask: t})
		}
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].due.Equal(batch[j].due) {
			return batch[i].seq < batch[j].seq
		}
		return batch[i].due.Before(batch[j].due)
	})

	ran := 0
	for _, t := range batch {
		cur, ok := s.tasks[t.key]
		if !ok || cur.seq != t.seq {
			continue
		}
		delete(s.tasks, t.key)
		t.fn()
		ran++
	}
	return ran
}

// Clear drops every pending task
func (s *Scheduler) Clear() {
	clear(s.tasks)
}
