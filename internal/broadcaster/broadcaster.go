// Package broadcaster implements C9: session-keyed websocket pub/sub.
// Grounded on the teacher's internal/api.Hub (a single global client
// set fed by one broadcast channel) — generalized here to one
// connection set per party session, since spec.md §4.9 requires
// broadcast/send to target a specific session rather than every
// connected client process-wide.
package broadcaster

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sheegaon/quipengine/internal/logging"
)

var log = logging.New("Broadcaster")

// Message is the envelope broadcast/send deliver. Type matches one of
// the named events in spec.md §4.9 (player_joined, phase_transition, ...).
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// conn pairs a live websocket with the player it belongs to, so
// Broadcast can exclude a player by ID.
type conn struct {
	playerID string
	ws       *websocket.Conn
}

// Hub is the session-keyed pub/sub registry. One Hub serves every
// party session in the process.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[string]*conn // sessionID -> playerID -> conn
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[string]*conn)}
}

// Connect registers ws as player's connection to session, replacing
// any prior connection that player held in that session.
func (h *Hub) Connect(sessionID, playerID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]*conn)
	}
	if old, ok := h.sessions[sessionID][playerID]; ok {
		old.ws.Close()
	}
	h.sessions[sessionID][playerID] = &conn{playerID: playerID, ws: ws}
	log.Printf("connected session=%s player=%s", sessionID, playerID)
}

// Disconnect removes player's connection from session, if present.
func (h *Hub) Disconnect(sessionID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if c, ok := conns[playerID]; ok {
		c.ws.Close()
		delete(conns, playerID)
	}
	if len(conns) == 0 {
		delete(h.sessions, sessionID)
	}
	log.Printf("disconnected session=%s player=%s", sessionID, playerID)
}

// Broadcast sends msg to every connection in session except
// excludePlayerID (pass "" to exclude no one).
func (h *Hub) Broadcast(sessionID string, msg Message, excludePlayerID string) {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.sessions[sessionID]))
	for playerID, c := range h.sessions[sessionID] {
		if playerID == excludePlayerID {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal broadcast message: %v", err)
		return
	}
	for _, c := range conns {
		h.write(sessionID, c, data)
	}
}

// Send delivers msg to exactly one player in session, if connected.
func (h *Hub) Send(sessionID, playerID string, msg Message) {
	h.mu.Lock()
	c, ok := h.sessions[sessionID][playerID]
	h.mu.Unlock()
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal send message: %v", err)
		return
	}
	h.write(sessionID, c, data)
}

func (h *Hub) write(sessionID string, c *conn, data []byte) {
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("write error session=%s player=%s: %v", sessionID, c.playerID, err)
		h.Disconnect(sessionID, c.playerID)
	}
}

// ConnectionCount reports how many live connections a session has, for
// tests and admin introspection.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}
