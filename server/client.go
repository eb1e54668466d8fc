package main

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kilegram-arena/match"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
)

// outFrame keeps the websocket message type of a relayed frame so binary
// snapshots go back out as binary
type outFrame struct {
	msgType int
	data    []byte
}

// Client is one peer's websocket connection, bound to a single room by its
// token
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	claims     Claims
	room       *Room
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	sendMu sync.Mutex
	send   chan outFrame
	closed bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, claims Claims, room *Room, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		claims:     claims,
		room:       room,
		remoteAddr: remoteAddr,
		send:       make(chan outFrame, sendBufSize),
	}
}

// ReadPump reads frames from the peer, checks them and relays them to the
// room
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleFrame(msgType, message)
	}
}

// handleFrame validates one frame and fans it out unchanged
func (c *Client) handleFrame(msgType int, raw []byte) {
	codec := match.JSONCodec
	if msgType == websocket.BinaryMessage {
		codec = match.MsgpackCodec
	}
	in, err := codec.Decode(raw)
	if err != nil {
		log.Printf("room %s: drop frame from %s: %v", c.room.Code, c.claims.UserID, err)
		return
	}
	if in.From != c.claims.UserID {
		log.Printf("room %s: %s sent a frame as %q", c.room.Code, c.claims.UserID, in.From)
		return
	}
	c.hub.journal.Track(c.room.Code, in)
	c.room.Broadcast(outFrame{msgType: msgType, data: raw})
}

// WritePump writes queued frames to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.msgType, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a frame; a slow client loses frames instead of stalling the
// room
func (c *Client) Send(f outFrame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}
