package match

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBufSize    = 256
)

type wsFrame struct {
	msgType int
	data    []byte
}

// WSBus is a Bus backed by a websocket connection to the room relay.
// player_update snapshots travel as msgpack binary frames, everything else
// as JSON text frames.
type WSBus struct {
	conn *websocket.Conn
	self string
	send chan wsFrame

	mu       sync.Mutex
	handlers map[int]Handler
	next     int

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
}

// DialWS connects to the relay at url and publishes as self
func DialWS(ctx context.Context, url, self string, header http.Header) (*WSBus, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	b := &WSBus{
		conn:     conn,
		self:     self,
		send:     make(chan wsFrame, wsSendBufSize),
		handlers: make(map[int]Handler),
		done:     make(chan struct{}),
	}
	b.wg.Add(2)
	go b.readPump()
	go b.writePump()
	return b, nil
}

// Publish queues ev for the relay. A full send buffer drops the frame,
// matching the relay's own slow-client policy.
func (b *WSBus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	codec, msgType := JSONCodec, websocket.TextMessage
	if ev != nil && ev.Kind() == KindPlayerUpdate {
		codec, msgType = MsgpackCodec, websocket.BinaryMessage
	}
	data, err := codec.Encode(b.self, ev)
	if err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	select {
	case b.send <- wsFrame{msgType: msgType, data: data}:
	case <-b.done:
		return ErrBusClosed
	default:
		b.dropped.Add(1)
	}
	return nil
}

// Subscribe registers h; handlers run on the read goroutine
func (b *WSBus) Subscribe(h Handler) func() {
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

// Dropped returns how many outbound frames were dropped on a full buffer
func (b *WSBus) Dropped() int64 {
	return b.dropped.Load()
}

// Done is closed once the connection is gone
func (b *WSBus) Done() <-chan struct{} {
	return b.done
}

// Close sends a close frame and waits for both pumps to exit
func (b *WSBus) Close() error {
	b.stop()
	b.wg.Wait()
	return nil
}

func (b *WSBus) stop() {
	b.stopOnce.Do(func() { close(b.done) })
}

func (b *WSBus) readPump() {
	defer func() {
		b.stop()
		b.wg.Done()
	}()

	b.conn.SetReadLimit(wsMaxMessageSize)
	b.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	b.conn.SetPongHandler(func(string) error {
		b.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		msgType, message, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws bus: read error: %v", err)
			}
			return
		}
		codec := JSONCodec
		if msgType == websocket.BinaryMessage {
			codec = MsgpackCodec
		}
		in, err := codec.Decode(message)
		if err != nil {
			log.Printf("ws bus: drop frame: %v", err)
			continue
		}
		b.deliver(in)
	}
}

func (b *WSBus) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		b.conn.Close()
		b.wg.Done()
	}()

	for {
		select {
		case f := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := b.conn.WriteMessage(f.msgType, f.data); err != nil {
				b.stop()
				return
			}
		case <-ticker.C:
			b.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.stop()
				return
			}
		case <-b.done:
			b.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			b.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (b *WSBus) deliver(in Inbound) {
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
