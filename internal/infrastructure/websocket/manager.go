package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one connected UI surface (bubble, page or modal)
// listening for store-change notifications.
type Client struct {
	SurfaceID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Manager fans store-change notifications out to every connected surface
// so they all re-render from the shared store at the same time.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.SurfaceID] = client
				m.mutex.Unlock()
				log.Printf("Surface connected: %s", client.SurfaceID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.SurfaceID]; ok {
					delete(m.clients, client.SurfaceID)
					close(client.Send)
				}
				m.mutex.Unlock()
				log.Printf("Surface disconnected: %s", client.SurfaceID)

			case message := <-m.broadcast:
				m.mutex.Lock()
				for _, client := range m.clients {
					select {
					case client.Send <- message:
					default:
						close(client.Send)
						delete(m.clients, client.SurfaceID)
					}
				}
				m.mutex.Unlock()

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Broadcast queues a store-change notification for every surface.
func (m *Manager) Broadcast(message []byte) {
	select {
	case m.broadcast <- message:
	default:
		log.Printf("Broadcast queue full, dropping notification")
	}
}

// ReadPump drains the surface's side of the socket until it closes.
// Surfaces only listen; anything they send is discarded.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Surface %s read error: %v", c.SurfaceID, err)
			}
			break
		}
	}
}

// WritePump sends notifications to the surface's socket.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("Surface %s write error: %v", c.SurfaceID, err)
			return
		}
	}
}
