package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Event types sent to subscribers.
const (
	EventSaved   = "saved"   // a document was stored through this server
	EventChanged = "changed" // a document file changed on disk by other means
)

// Event tells subscribers that the annotations of an image changed.
type Event struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	Revision uint64 `json:"revision,omitempty"`
	Server   string `json:"server,omitempty"`
}

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// subscriber receives events for one key, or for all keys when key is "".
type subscriber struct {
	key  string
	send chan Event
}

// Hub fans events out to websocket clients and in-process listeners.
type Hub struct {
	subs map[*subscriber]bool
	mu   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]bool)}
}

func (h *Hub) add(key string) *subscriber {
	s := &subscriber{key: key, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	h.subs[s] = true
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s] {
		delete(h.subs, s)
		close(s.send)
	}
}

// Subscribe returns a channel of events for key ("" for every key) and a
// function that ends the subscription.
func (h *Hub) Subscribe(key string) (<-chan Event, func()) {
	s := h.add(key)
	return s.send, func() { h.remove(s) }
}

// Broadcast delivers ev to every matching subscriber. A subscriber whose
// buffer is full is dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.key != "" && s.key != ev.Key {
			continue
		}
		select {
		case s.send <- ev:
		default:
			log.WithField("key", ev.Key).Warn("[SERVER] dropping slow subscriber")
			delete(h.subs, s)
			close(s.send)
		}
	}
}

// Len is the number of current subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// serveConn pumps events for key to conn until the peer goes away.
func (h *Hub) serveConn(conn *websocket.Conn, key string) {
	s := h.add(key)
	log.WithField("remote", conn.RemoteAddr().String()).Debug("[SERVER] event subscriber connected")

	go func() {
		defer h.remove(s)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		log.WithField("remote", conn.RemoteAddr().String()).Debug("[SERVER] event subscriber gone")
	}()
	for {
		select {
		case ev, ok := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}
