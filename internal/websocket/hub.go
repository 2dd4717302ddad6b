package chatws

import (
	"encoding/json"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/services"
)

// Event is the wire envelope for everything the hub sends.
type Event struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type Hub struct {
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	broadcast  chan delivery
}

type subscription struct {
	client *Client
	room   string
}

type delivery struct {
	room    string
	payload []byte
	exclude *Client
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	id     string
	userID string
	rooms  map[string]struct{}
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		broadcast:  make(chan delivery, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		id:     uuid.NewString(),
		userID: userID,
		rooms:  make(map[string]struct{}),
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// Every connection listens on its personal room for
			// out-of-band notifications.
			h.subscribe(client, "user:"+client.userID)
		case client := <-h.unregister:
			h.drop(client)
		case sub := <-h.join:
			h.subscribe(sub.client, sub.room)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Join(client *Client, room string) {
	if room == "" {
		return
	}
	h.join <- subscription{client: client, room: room}
}

// Publish implements services.Broadcaster. Delivery is best-effort: when
// the hub queue is full the event is dropped rather than blocking the
// caller.
func (h *Hub) Publish(room string, event string, payload any) {
	encoded, err := json.Marshal(Event{Event: event, Room: room, Data: payload})
	if err != nil {
		log.Printf("chat hub encode %s event: %v", event, err)
		return
	}
	select {
	case h.broadcast <- delivery{room: room, payload: encoded}:
	default:
		log.Printf("chat hub queue full, dropping %s for room %s", event, room)
	}
}

var _ services.Broadcaster = (*Hub)(nil)

func (h *Hub) relay(room string, payload []byte, exclude *Client) {
	select {
	case h.broadcast <- delivery{room: room, payload: payload, exclude: exclude}:
	default:
		log.Printf("chat hub queue full, dropping relay for room %s", room)
	}
}

func (h *Hub) subscribe(client *Client, room string) {
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) drop(client *Client) {
	removed := false
	for room := range client.rooms {
		if set, ok := h.rooms[room]; ok {
			if _, exists := set[client]; exists {
				delete(set, client)
				removed = true
			}
			if len(set) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	client.rooms = make(map[string]struct{})
	if removed {
		close(client.send)
	}
}

func (h *Hub) deliver(d delivery) {
	set, ok := h.rooms[d.room]
	if !ok {
		return
	}

	for client := range set {
		if client == d.exclude {
			continue
		}
		select {
		case client.send <- d.payload:
		default:
			// Slow consumer: evict rather than stall the room.
			h.drop(client)
		}
	}
}

// ReadPump consumes client frames until the connection drops. Clients may
// join rooms and relay ephemeral typing signals; messages themselves are
// submitted over the REST API.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame struct {
			Event string          `json:"event"`
			Room  string          `json:"room"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.writeError("invalid frame")
			continue
		}

		switch frame.Event {
		case "join_chat":
			c.hub.Join(c, frame.Room)
		case "typing", "stop_typing":
			// Not persisted; relayed to everyone else in the room.
			encoded, err := json.Marshal(Event{Event: frame.Event, Room: frame.Room, Data: frame.Data})
			if err != nil {
				continue
			}
			c.hub.relay(frame.Room, encoded, c)
		default:
			c.writeError("unsupported event")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(message string) {
	payload, err := json.Marshal(Event{Event: "error", Data: message})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}
