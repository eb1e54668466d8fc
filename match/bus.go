package match

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
)

//go:generate go tool mockgen -destination=./mocks/bus_mock.go -package=mocks . Publisher,Bus

// Handler receives every event published in the room, including the
// subscriber's own
type Handler func(Inbound)

// Publisher sends events to the room. Delivery is fire-and-forget: there
// is no acknowledgement and no ordering across peers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus is a room-scoped publish/subscribe channel
type Bus interface {
	Publisher
	Subscribe(h Handler) (unsubscribe func())
	Close() error
}

// LocalRoom connects LocalBus peers inside one process. Frames go through
// JSONCodec so in-process peers see exactly what a relay would carry.
type LocalRoom struct {
	mu      sync.Mutex
	members map[*LocalBus]struct{}
	loss    float64
	rng     *rand.Rand
}

// NewLocalRoom creates an empty lossless room
func NewLocalRoom() *LocalRoom {
	return &LocalRoom{
		members: make(map[*LocalBus]struct{}),
		rng:     rand.New(rand.NewPCG(1, 2)),
	}
}

// SetLossRate drops each delivery to another peer with probability p.
// Self-delivery is never dropped.
func (r *LocalRoom) SetLossRate(p float64, seed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loss = Clamp(p, 0, 1)
	r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Join adds a peer publishing as userID
func (r *LocalRoom) Join(userID string) *LocalBus {
	b := &LocalBus{
		room:     r,
		userID:   userID,
		handlers: make(map[int]Handler),
	}
	r.mu.Lock()
	r.members[b] = struct{}{}
	r.mu.Unlock()
	return b
}

// Len returns the number of joined peers
func (r *LocalRoom) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *LocalRoom) leave(b *LocalBus) {
	r.mu.Lock()
	delete(r.members, b)
	r.mu.Unlock()
}

// broadcast decodes frame once and hands the same read-only event to every
// member that survives the loss roll
func (r *LocalRoom) broadcast(sender *LocalBus, frame []byte) {
	in, err := JSONCodec.Decode(frame)
	if err != nil {
		log.Printf("local room: drop frame: %v", err)
		return
	}

	r.mu.Lock()
	targets := make([]*LocalBus, 0, len(r.members))
	for m := range r.members {
		if m != sender && r.loss > 0 && r.rng.Float64() < r.loss {
			continue
		}
		targets = append(targets, m)
	}
	r.mu.Unlock()

	for _, m := range targets {
		m.deliver(in)
	}
}

// LocalBus is one peer's connection to a LocalRoom. Handlers run on the
// publishing goroutine.
type LocalBus struct {
	room   *LocalRoom
	userID string

	mu       sync.Mutex
	handlers map[int]Handler
	next     int
	closed   bool
}

// Publish encodes ev and delivers it to every peer in the room
func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}
	frame, err := JSONCodec.Encode(b.userID, ev)
	if err != nil {
		return err
	}
	b.room.broadcast(b, frame)
	return nil
}

// Subscribe registers h and returns a func removing it
func (b *LocalBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Close leaves the room. Later publishes fail with ErrBusClosed.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	clear(b.handlers)
	b.mu.Unlock()
	b.room.leave(b)
	return nil
}

func (b *LocalBus) deliver(in Inbound) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(in)
	}
}
