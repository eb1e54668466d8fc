package main

import (
	"log"
	"sync"
	"time"

	"kilegram-arena/match"
)

const (
	journalBufSize    = 1024
	journalBatchSize  = 50
	journalFlushEvery = 2 * time.Second
)

// Journal records the match events a room relays with batched background
// writes. Snapshots are not journaled.
type Journal struct {
	db     *DB
	events chan EventRow
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// NewJournal creates and starts the journal writer. A nil db discards
// everything.
func NewJournal(db *DB) *Journal {
	j := &Journal{
		db:     db,
		events: make(chan EventRow, journalBufSize),
		stop:   make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writer()
	return j
}

// Track enqueues a relayed event for async persistence (non-blocking)
func (j *Journal) Track(room string, in match.Inbound) {
	row, ok := eventRow(room, in)
	if !ok {
		return
	}
	select {
	case j.events <- row:
	default:
		// Buffer full: drop rather than stall the relay
		j.mu.Lock()
		j.dropped++
		j.mu.Unlock()
	}
}

func eventRow(room string, in match.Inbound) (EventRow, bool) {
	row := EventRow{
		Room:      room,
		Kind:      string(in.Event.Kind()),
		From:      in.From,
		CreatedAt: time.Now().UTC(),
	}
	switch ev := in.Event.(type) {
	case match.PlayerHit:
		row.Target, row.Killer, row.Damage = ev.TargetUserID, ev.KillerID, ev.Damage
	case match.PlayerDied:
		row.Target, row.Killer = ev.UserID, ev.KillerID
	case match.ZoneUpdate:
		row.Damage = ev.Radius
	case match.GameStarted:
	default:
		return EventRow{}, false
	}
	return row, true
}

// Dropped returns how many events were dropped on a full buffer
func (j *Journal) Dropped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Stop drains pending events and shuts down the writer
func (j *Journal) Stop() {
	j.once.Do(func() { close(j.stop) })
	j.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (j *Journal) writer() {
	defer j.wg.Done()

	batch := make([]EventRow, 0, journalBatchSize)
	ticker := time.NewTicker(journalFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-j.events:
			batch = append(batch, evt)
			if len(batch) >= journalBatchSize {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-j.stop:
			for {
				select {
				case evt := <-j.events:
					batch = append(batch, evt)
				default:
					j.flush(batch)
					return
				}
			}
		}
	}
}

func (j *Journal) flush(events []EventRow) {
	if j.db == nil || len(events) == 0 {
		return
	}
	if err := j.db.InsertEvents(events); err != nil {
		log.Printf("journal: flush error: %v", err)
	}
}
