package match

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type inboxRecorder struct {
	mu  sync.Mutex
	got []Inbound
}

func (r *inboxRecorder) handle(in Inbound) {
	r.mu.Lock()
	r.got = append(r.got, in)
	r.mu.Unlock()
}

func (r *inboxRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestLocalRoomDeliversToEveryoneIncludingSender(t *testing.T) {
	room := NewLocalRoom()
	a, b := room.Join("a"), room.Join("b")
	var ra, rb inboxRecorder
	a.Subscribe(ra.handle)
	b.Subscribe(rb.handle)

	if err := a.Publish(context.Background(), PlayerDied{UserID: "b", KillerID: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ra.len() != 1 || rb.len() != 1 {
		t.Fatalf("expected one delivery each, got a=%d b=%d", ra.len(), rb.len())
	}
	if ra.got[0].From != "a" {
		t.Errorf("from = %q", ra.got[0].From)
	}
	if d, ok := rb.got[0].Event.(PlayerDied); !ok || d.UserID != "b" {
		t.Errorf("unexpected event %+v", rb.got[0].Event)
	}
}

func TestLocalBusUnsubscribeAndClose(t *testing.T) {
	room := NewLocalRoom()
	a, b := room.Join("a"), room.Join("b")
	var rb inboxRecorder
	unsubscribe := b.Subscribe(rb.handle)
	unsubscribe()

	a.Publish(context.Background(), PlayerDied{UserID: "x", KillerID: "a"})
	if rb.len() != 0 {
		t.Error("unsubscribed handler still called")
	}

	b.Close()
	if room.Len() != 1 {
		t.Errorf("closed bus should leave the room, %d members", room.Len())
	}
	if err := b.Publish(context.Background(), PlayerDied{UserID: "x", KillerID: "b"}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("publish after close: got %v", err)
	}
}

func TestLocalRoomLossNeverDropsSelf(t *testing.T) {
	room := NewLocalRoom()
	room.SetLossRate(1, 42)
	a, b := room.Join("a"), room.Join("b")
	var ra, rb inboxRecorder
	a.Subscribe(ra.handle)
	b.Subscribe(rb.handle)

	for range 10 {
		a.Publish(context.Background(), PlayerDied{UserID: "b", KillerID: "a"})
	}
	if ra.len() != 10 {
		t.Errorf("self-delivery dropped: %d", ra.len())
	}
	if rb.len() != 0 {
		t.Errorf("full loss still delivered %d", rb.len())
	}
}

func TestLocalBusRejectsInvalidEvent(t *testing.T) {
	room := NewLocalRoom()
	a := room.Join("a")
	if err := a.Publish(context.Background(), ZoneUpdate{Radius: -1}); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("got %v, want ErrMalformedEvent", err)
	}
}

func TestLocalRoomBroadcastReachesEveryMember(t *testing.T) {
	room := NewLocalRoom()
	buses := []*LocalBus{room.Join("a"), room.Join("b"), room.Join("c")}
	recs := make([]*inboxRecorder, len(buses))
	for i, b := range buses {
		recs[i] = &inboxRecorder{}
		b.Subscribe(recs[i].handle)
	}

	room.broadcast(buses[0], []byte(`{"t":"player_died","from":"a","d":{"userId":"b"}}`))
	for i, r := range recs {
		if r.len() != 0 {
			t.Errorf("member %d got an undecodable frame", i)
		}
	}

	frame, err := JSONCodec.Encode("a", PlayerDied{UserID: "b", KillerID: "a"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	room.broadcast(buses[0], frame)
	for i, r := range recs {
		if r.len() != 1 {
			t.Errorf("member %d got %d frames, want 1", i, r.len())
		}
	}
}
