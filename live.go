package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// livePlayer is the wire shape of one player in a live snapshot.
type livePlayer struct {
	Name      string    `json:"name"`
	Dimension string    `json:"dimension,omitempty"`
	Position  []float64 `json:"position,omitempty"`
	Rotation  []float64 `json:"rotation,omitempty"`
	AFK       bool      `json:"afk"`
	LastSeen  time.Time `json:"last_seen"`
}

type liveSnapshot struct {
	Type    string       `json:"type"`
	Players []livePlayer `json:"players"`
}

// liveClient wraps one WebSocket connection with a buffered outbound queue.
// Enqueue never blocks; when the queue is full the message is dropped so a
// slow viewer cannot stall the broadcasting poll cycle.
type liveClient struct {
	ws   *websocket.Conn
	send chan []byte
}

func (c *liveClient) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

func (c *liveClient) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// LiveServer broadcasts store snapshots to WebSocket viewers on every change.
type LiveServer struct {
	store *PlayerStore
	srv   *http.Server

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

// NewLiveServer wires the viewer endpoint and an out-of-band refresh trigger.
// refresh may be nil.
func NewLiveServer(addr string, store *PlayerStore, refresh func()) *LiveServer {
	ls := &LiveServer{
		store:   store,
		clients: make(map[*liveClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ls.handleWS)
	mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, _ *http.Request) {
		if refresh != nil {
			refresh()
		}
		w.WriteHeader(http.StatusAccepted)
	})
	ls.srv = &http.Server{Addr: addr, Handler: mux}

	// Any committed store mutation re-broadcasts the full snapshot; viewers
	// always see a consistent list rather than deltas.
	store.OnChange(func(string, *PlayerRecord) { ls.broadcast() })
	return ls
}

// Run serves until ctx is cancelled.
func (ls *LiveServer) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		ls.srv.Shutdown(shutdownCtx)
	}()
	if err := ls.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("live server: %v", err)
	}
}

func (ls *LiveServer) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := ls.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &liveClient{ws: ws, send: make(chan []byte, 16)}

	ls.mu.Lock()
	ls.clients[client] = struct{}{}
	ls.mu.Unlock()

	client.enqueue(ls.snapshotJSON())
	go client.writePump()

	// Read pump: viewers send nothing meaningful; reads only detect close.
	go func() {
		defer ls.drop(client)
		ws.SetReadLimit(512)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (ls *LiveServer) drop(client *liveClient) {
	ls.mu.Lock()
	if _, ok := ls.clients[client]; ok {
		delete(ls.clients, client)
		close(client.send)
	}
	ls.mu.Unlock()
}

func (ls *LiveServer) broadcast() {
	msg := ls.snapshotJSON()
	ls.mu.Lock()
	for client := range ls.clients {
		client.enqueue(msg)
	}
	ls.mu.Unlock()
}

func (ls *LiveServer) snapshotJSON() []byte {
	records := ls.store.Snapshot()
	players := make([]livePlayer, 0, len(records))
	for _, rec := range records {
		p := livePlayer{
			Name:      rec.Name,
			Dimension: rec.Dimension,
			AFK:       rec.AFK,
			LastSeen:  rec.LastSeen,
		}
		if p.LastSeen.IsZero() {
			p.LastSeen = rec.LastUpdate
		}
		if rec.Position != nil {
			p.Position = []float64{rec.Position.X(), rec.Position.Y(), rec.Position.Z()}
		}
		if rec.Rotation != nil {
			p.Rotation = []float64{rec.Rotation.X(), rec.Rotation.Y()}
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	b, err := json.Marshal(liveSnapshot{Type: "players", Players: players})
	if err != nil {
		log.Printf("live snapshot marshal: %v", err)
		return []byte(`{"type":"players","players":[]}`)
	}
	return b
}
