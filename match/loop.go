package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrLoopStopped = errors.New("match: loop stopped")

// Loop drives a Match from a single goroutine. Bus callbacks only enqueue
// into the inbox, commands are closures run between steps, and the
// latest Frame is published through an atomic pointer, so the simulation
// itself needs no locking.
type Loop struct {
	m   *Match
	bus Bus

	inbox chan Inbound
	cmds  chan func(now time.Time)
	done  chan struct{}

	inputMu sync.Mutex
	input   Input

	frame   atomic.Pointer[Frame]
	dropped atomic.Int64
}

// NewLoop wires m to bus. m should publish through the same bus.
func NewLoop(m *Match, bus Bus) *Loop {
	size := m.cfg.InboxSize
	if size <= 0 {
		size = 256
	}
	return &Loop{
		m:     m,
		bus:   bus,
		inbox: make(chan Inbound, size),
		cmds:  make(chan func(time.Time)),
		done:  make(chan struct{}),
	}
}

// Run subscribes to the bus and ticks at TickRate until ctx is cancelled.
// On return the subscription is gone and any pending reload is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	unsubscribe := l.bus.Subscribe(l.enqueue)
	defer func() {
		unsubscribe()
		l.m.Close()
		close(l.done)
	}()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	l.storeFrame(time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-l.inbox:
			l.m.Handle(ctx, in, time.Now())
		case cmd := <-l.cmds:
			cmd(time.Now())
		case <-ticker.C:
			now := time.Now()
			l.inputMu.Lock()
			l.m.SetInput(l.input)
			l.inputMu.Unlock()
			l.m.Step(ctx, now)
			l.storeFrame(now)
		}
	}
}

func (l *Loop) enqueue(in Inbound) {
	select {
	case l.inbox <- in:
	default:
		l.dropped.Add(1)
	}
}

func (l *Loop) storeFrame(now time.Time) {
	f := l.m.Frame(now)
	l.frame.Store(&f)
}

// SetInput records the latest control state; it is read at the next tick
func (l *Loop) SetInput(in Input) {
	l.inputMu.Lock()
	l.input = in
	l.inputMu.Unlock()
}

// Frame returns the most recent frame, or false before Run has started
func (l *Loop) Frame() (Frame, bool) {
	f := l.frame.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Dropped returns how many inbound events were dropped on a full inbox
func (l *Loop) Dropped() int64 {
	return l.dropped.Load()
}

// Done is closed after Run has returned and torn down
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Reload asks the loop to start a reload
func (l *Loop) Reload(ctx context.Context) (bool, error) {
	return call(ctx, l, func(now time.Time) bool {
		return l.m.Reload(now)
	})
}

// SwitchWeapon asks the loop to equip weaponID
func (l *Loop) SwitchWeapon(ctx context.Context, weaponID string) (bool, error) {
	return call(ctx, l, func(time.Time) bool {
		return l.m.SwitchWeapon(weaponID)
	})
}

// StartGame announces the roster from the loop goroutine
func (l *Loop) StartGame(ctx context.Context, teams Teams, spawns *SpawnPoints) error {
	pubErr, err := call(ctx, l, func(now time.Time) error {
		return l.m.StartGame(ctx, teams, spawns, now)
	})
	if err != nil {
		return err
	}
	return pubErr
}

// call runs fn on the loop goroutine and waits for its result
func call[T any](ctx context.Context, l *Loop, fn func(now time.Time) T) (T, error) {
	var zero T
	res := make(chan T, 1)
	cmd := func(now time.Time) { res <- fn(now) }
	select {
	case l.cmds <- cmd:
	case <-l.done:
		return zero, ErrLoopStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-res:
		return v, nil
	case <-l.done:
		return zero, ErrLoopStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
