package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize           = 256
	defaultFeedLimit = 20
	maxFeedLimit     = 200
	maxBodyBytes     = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type createRoomReq struct {
	Code     string `json:"code"`
	Passcode string `json:"passcode"`
}

type joinRoomReq struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// SetupRoutes configures HTTP routes. baseURL is the public address that
// room QR codes point at.
func SetupRoutes(hub *Hub, baseURL string) *http.ServeMux {
	mux := http.NewServeMux()
	baseURL = strings.TrimRight(baseURL, "/")

	mux.HandleFunc("POST /rooms", func(w http.ResponseWriter, r *http.Request) {
		var req createRoomReq
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		room, err := hub.rooms.CreateRoom(req.Code, req.Passcode)
		switch {
		case errors.Is(err, ErrRoomExists):
			writeError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, ErrTooManyRooms):
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"code": room.Code})
	})

	mux.HandleFunc("POST /rooms/{code}/join", func(w http.ResponseWriter, r *http.Request) {
		room := hub.rooms.GetRoom(r.PathValue("code"))
		if room == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		var req joinRoomReq
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if err := CheckPasscode(room.passHash, req.Passcode); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		token, err := hub.auth.Join(room.Code, req.UserID, req.Username, extractIP(r))
		switch {
		case errors.Is(err, ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	})

	mux.HandleFunc("GET /rooms/{code}/qr", func(w http.ResponseWriter, r *http.Request) {
		room := hub.rooms.GetRoom(r.PathValue("code"))
		if room == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		png, err := qrcode.Encode(baseURL+"/rooms/"+url.PathEscape(room.Code), qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("qr %s: %v", room.Code, err)
			writeError(w, http.StatusInternalServerError, "qr failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	mux.HandleFunc("GET /rooms/{code}/kills", func(w http.ResponseWriter, r *http.Request) {
		room := hub.rooms.GetRoom(r.PathValue("code"))
		if room == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if hub.db == nil {
			writeJSON(w, http.StatusOK, []KillRow{})
			return
		}
		limit := defaultFeedLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(n, maxFeedLimit)
		}
		kills, err := hub.db.KillFeed(room.Code, limit)
		if err != nil {
			log.Printf("kill feed %s: %v", room.Code, err)
			writeError(w, http.StatusInternalServerError, "kill feed failed")
			return
		}
		if kills == nil {
			kills = []KillRow{}
		}
		writeJSON(w, http.StatusOK, kills)
	})

	// WebSocket endpoint; the token names both the user and the room
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		claims, err := hub.auth.ValidateToken(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		room := hub.rooms.GetRoom(claims.Room)
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		client := NewClient(hub, conn, claims, room, ip)
		if err := room.Add(client); err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
			conn.Close()
			return
		}
		hub.TrackConnect(ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}
