package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Constants for WebSocket configuration (adjust as needed)
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// hub channels are buffered so producers never wait on the Run loop
	hubQueueSize = 256

	// per client outbound queue
	ClientQueueSize = 32
)

// Hub keeps client's registry and handle messages routing.
// Clients are indexed twice: by the listing they watch and by the user behind the socket.
type Hub struct {
	listings map[string]map[*Client]bool
	users    map[string]map[*Client]bool

	toListing  chan *Message
	toUser     chan *Message
	register   chan *Client
	unregister chan *Client
	// this channel will be listened to by module-specific handlers (e.g, auction handler)
	InboundMessages chan *ClientMessage
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The listing this client is watching.
	ListingID string
	// The user behind the connection, empty for anonymous watchers.
	UserID string
	// Unique identifier for the client
	ID string

	// guards Send against a close racing with producers outside the hub
	mu     sync.Mutex
	closed bool
}

// Message is an outbound payload addressed to a listing group or a user group
type Message struct {
	Target string
	Data   []byte
}

// ClientMessage is used for wraping the client and data message received.
// is used to send inbound messages from the client to the hub handlers
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		listings:        make(map[string]map[*Client]bool),
		users:           make(map[string]map[*Client]bool),
		toListing:       make(chan *Message, hubQueueSize),
		toUser:          make(chan *Message, hubQueueSize),
		register:        make(chan *Client, hubQueueSize),
		unregister:      make(chan *Client, hubQueueSize),
		InboundMessages: make(chan *ClientMessage, hubQueueSize),
	}
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			for _, clients := range h.listings {
				for c := range clients {
					h.remove(c)
				}
			}
			return

		case client := <-h.register:
			add(h.listings, client.ListingID, client)
			if client.UserID != "" {
				add(h.users, client.UserID, client)
			}
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("listingID", client.ListingID),
				zap.String("userID", client.UserID),
			)

		case client := <-h.unregister:
			if h.remove(client) {
				log.Info("Client unregistered",
					zap.String("clientID", client.ID),
					zap.String("listingID", client.ListingID),
				)
			}

		case message := <-h.toListing:
			h.deliver(h.listings[message.Target], message)

		case message := <-h.toUser:
			h.deliver(h.users[message.Target], message)
		}
	}
}

func (h *Hub) deliver(clients map[*Client]bool, message *Message) {
	for client := range clients {
		if !client.Enqueue(message.Data) {
			// client is not draining its queue, probably disconnected
			log.Warn("Failed to Send message to client, unregistering",
				zap.String("clientID", client.ID),
				zap.String("listingID", client.ListingID),
			)
			h.remove(client)
		}
	}
}

// Enqueue queues data for the write pump without blocking.
// It reports false when the queue is full or the hub already closed it.
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// remove drops client from both indexes and closes its queue, only the first call does anything
func (h *Hub) remove(client *Client) bool {
	clients, ok := h.listings[client.ListingID]
	if !ok || !clients[client] {
		return false
	}
	drop(h.listings, client.ListingID, client)
	if client.UserID != "" {
		drop(h.users, client.UserID, client)
	}
	client.closeSend()
	return true
}

func add(index map[string]map[*Client]bool, key string, client *Client) {
	if _, ok := index[key]; !ok {
		index[key] = make(map[*Client]bool)
	}
	index[key][client] = true
}

func drop(index map[string]map[*Client]bool, key string, client *Client) {
	clients := index[key]
	delete(clients, client)
	if len(clients) == 0 {
		delete(index, key)
	}
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("listingID", client.ListingID),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("listingID", client.ListingID),
		)
	}
}

// BroadcastToListing sends data to every client watching listingID
func (h *Hub) BroadcastToListing(listingID string, data []byte) {
	select {
	case h.toListing <- &Message{Target: listingID, Data: data}:
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("listingID", listingID))
	}
}

// SendToUser sends data to every socket opened by userID
func (h *Hub) SendToUser(userID string, data []byte) {
	select {
	case h.toUser <- &Message{Target: userID, Data: data}:
	default:
		log.Error("User channel is full, message dropped", zap.String("userID", userID))
	}
}

// ReadPump reads client messages and hands them to the hub handlers through InboundMessages.
// It blocks until the connection fails or ctx is done, one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Debug("ReadPump stopped for client", zap.String("clientID", c.ID))
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("listingID", c.ListingID),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			// handlers are not keeping up
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("listingID", c.ListingID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// The application ensures that there is at most one writer to a connection by
// invoking WriteControl and WriteMessage from this goroutine only.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Debug("Failed to send close control message", zap.String("clientID", c.ID), zap.Error(err))
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per message, clients parse JSON documents
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("Failed to write ping message to client", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
