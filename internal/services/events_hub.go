package services

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"boardly/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// HubMessage is the wire shape pushed to websocket clients.
type HubMessage struct {
	Type      string      `json:"type"`
	BoardID   uint        `json:"board_id,omitempty"`
	UserID    uint        `json:"user_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// HubClient is one websocket connection, subscribed to a board and a user.
type HubClient struct {
	ID      string
	BoardID uint
	UserID  uint
	Conn    *websocket.Conn
	Send    chan HubMessage
	Hub     *BoardHub
}

// BoardHub fans out board events and user notifications to connected
// clients. Board-scoped messages reach every subscriber of that board;
// user-scoped messages reach only that user's connections.
type BoardHub struct {
	clients    map[string]*HubClient
	broadcast  chan HubMessage
	register   chan *HubClient
	unregister chan *HubClient
	mutex      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin checks belong to the reverse proxy in production
	},
}

func NewBoardHub() *BoardHub {
	return &BoardHub{
		clients:    make(map[string]*HubClient),
		broadcast:  make(chan HubMessage, 64),
		register:   make(chan *HubClient),
		unregister: make(chan *HubClient),
	}
}

func (h *BoardHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			logrus.Infof("hub: client %s connected (board %d)", client.ID, client.BoardID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				logrus.Infof("hub: client %s disconnected", client.ID)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for id, client := range h.clients {
				if !h.wants(client, message) {
					continue
				}
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *BoardHub) wants(client *HubClient, msg HubMessage) bool {
	if msg.UserID != 0 {
		return client.UserID == msg.UserID
	}
	if msg.BoardID != 0 {
		return client.BoardID == msg.BoardID
	}
	return true
}

// PublishEvent pushes a domain event to the event's board subscribers.
func (h *BoardHub) PublishEvent(evt DomainEvent) {
	select {
	case h.broadcast <- HubMessage{
		Type:      "event",
		BoardID:   evt.BoardID,
		Data:      evt,
		Timestamp: time.Now(),
	}:
	default:
		logrus.Warn("hub: broadcast buffer full, event dropped")
	}
}

// PublishNotification pushes an in-app notification to one user's connections.
func (h *BoardHub) PublishNotification(userID uint, n *models.Notification) {
	select {
	case h.broadcast <- HubMessage{
		Type:      "notification",
		UserID:    userID,
		Data:      n,
		Timestamp: time.Now(),
	}:
	default:
		logrus.Warn("hub: broadcast buffer full, notification dropped")
	}
}

func (h *BoardHub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request; board_id scopes the subscription.
func (h *BoardHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Error("hub: websocket upgrade failed: ", err)
		return
	}

	boardID, _ := strconv.ParseUint(c.Query("board_id"), 10, 32)
	var userID uint
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			userID = id
		}
	}

	client := &HubClient{
		ID:      uuid.NewString(),
		BoardID: uint(boardID),
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan HubMessage, 256),
		Hub:     h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *HubClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		// clients only receive; inbound frames just keep the connection alive
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Warnf("hub: read error: %v", err)
			}
			return
		}
	}
}

func (c *HubClient) writePump() {
	ticker := time.NewTicker(45 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
