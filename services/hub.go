package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans broadcast events out over WebSocket connections. Clients
// subscribe by connecting for a match; team-scoped events only reach
// clients registered for that team.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	// states serves state sync requests; set after construction to
	// break the hub/match-service dependency cycle.
	states StateProvider
}

// StateProvider supplies the live match snapshot for state sync.
type StateProvider interface {
	State(ctx context.Context, matchID uint) (*MatchState, error)
}

type Client struct {
	hub        *Hub
	id         string
	socket     *websocket.Conn
	send       chan []byte
	matchID    uint
	teamID     uint
	memberID   uint
	memberName string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetStateProvider wires the snapshot source used for state sync.
func (h *Hub) SetStateProvider(states StateProvider) {
	h.states = states
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("client %s registered for match %d (team %d, member %d)", client.id, client.matchID, client.teamID, client.memberID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("client %s unregistered from match %d", client.id, client.matchID)
			}
			h.mutex.Unlock()
		}
	}
}

// ToMatch sends an event to every client in the match.
func (h *Hub) ToMatch(matchID uint, event string, payload interface{}) {
	h.send(event, payload, func(c *Client) bool { return c.matchID == matchID })
}

// ToTeam sends an event only to clients registered for the team.
func (h *Hub) ToTeam(teamID uint, event string, payload interface{}) {
	h.send(event, payload, func(c *Client) bool { return c.teamID == teamID })
}

func (h *Hub) send(event string, payload interface{}, match func(*Client) bool) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		log.Printf("error marshaling %s event: %v", event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// ConnectedMembers lists the member IDs currently connected for a
// match.
func (h *Hub) ConnectedMembers(matchID uint) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var ids []uint
	for client := range h.clients {
		if client.matchID == matchID {
			ids = append(ids, client.memberID)
		}
	}
	return ids
}

func (h *Hub) RegisterClient(conn *websocket.Conn, matchID, teamID, memberID uint, memberName string) *Client {
	client := &Client{
		hub:        h,
		id:         uuid.NewString(),
		socket:     conn,
		send:       make(chan []byte, 256),
		matchID:    matchID,
		teamID:     teamID,
		memberID:   memberID,
		memberName: memberName,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) sendStateSync(client *Client) {
	if h.states == nil {
		return
	}
	state, err := h.states.State(context.Background(), client.matchID)
	if err != nil {
		log.Printf("state sync failed for client %s: %v", client.id, err)
		return
	}
	payload := struct {
		*MatchState
		ConnectedMembers []uint `json:"connected_members"`
	}{state, h.ConnectedMembers(client.matchID)}
	data, err := json.Marshal(Message{Type: "state_sync", Payload: payload})
	if err != nil {
		log.Printf("error marshaling state sync: %v", err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("error unmarshaling client message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: "pong", Payload: "pong"})
		c.send <- data

	case "request_state":
		c.hub.sendStateSync(c)

	default:
		log.Printf("unknown message type %q from client %s", msg.Type, c.id)
	}
}
