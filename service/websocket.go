package service

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/cmd/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// FeedClient is one websocket subscriber on the live signal feed.
type FeedClient struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *FeedHub
}

// FeedHub broadcasts published and closed signals to connected clients.
type FeedHub struct {
	clients    map[*FeedClient]bool
	register   chan *FeedClient
	unregister chan *FeedClient
	broadcast  chan []byte
	mu         sync.RWMutex
}

// FeedEvent is the wire format of a feed message.
type FeedEvent struct {
	Type   string         `json:"type"`
	Signal *models.Signal `json:"signal"`
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *FeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastSignal pushes a signal event to every connected client.
func (h *FeedHub) BroadcastSignal(eventType string, signal models.Signal) {
	message, err := json.Marshal(FeedEvent{Type: eventType, Signal: &signal})
	if err != nil {
		log.Printf("Error marshaling feed event: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Println("Feed broadcast buffer full, dropping event")
	}
}

// ClientCount reports how many feed subscribers are connected.
func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReadPump drains the connection to process control frames. The feed is
// one-way, so inbound data frames are discarded.
func (c *FeedClient) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *FeedClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler upgrades authenticated requests onto the feed hub.
type WebSocketHandler struct {
	hub *FeedHub
	db  *gorm.DB
}

func NewWebSocketHandler(db *gorm.DB, hub *FeedHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, db: db}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/signals", utils.AuthMiddleware(h.HandleWebSocket))
}

func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &FeedClient{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		Hub:    h.hub,
	}
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
