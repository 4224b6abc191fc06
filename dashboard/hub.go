package dashboard

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/marketwatch/watch"
)

const (
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
	clientBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// message is what the page receives over the socket.
type message struct {
	Type     string         `json:"type"`
	Snapshot watch.Snapshot `json:"snapshot"`
}

type client struct {
	conn *websocket.Conn
	out  chan message
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// hub fans snapshots out to connected pages. A client that falls behind
// loses messages instead of stalling the others.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *slog.Logger
}

func newHub(log *slog.Logger) *hub {
	return &hub{clients: make(map[*client]struct{}), log: log}
}

func (h *hub) broadcast(s watch.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := message{Type: "snapshot", Snapshot: s}
	for c := range h.clients {
		select {
		case c.out <- m:
		default:
			h.log.Debug("websocket client slow, dropping snapshot", "remote", c.conn.RemoteAddr())
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// serve upgrades the request and sends current first, then every
// broadcast, until the peer goes away.
func (h *hub) serve(current func() watch.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debug("websocket upgrade failed", "error", err)
			return
		}

		c := &client{conn: conn, out: make(chan message, clientBuffer), done: make(chan struct{})}
		c.out <- message{Type: "snapshot", Snapshot: current()}
		h.add(c)
		h.log.Debug("websocket client connected", "remote", conn.RemoteAddr(), "clients", h.count())
		defer func() {
			h.remove(c)
			h.log.Debug("websocket client disconnected", "remote", conn.RemoteAddr())
		}()

		go h.write(c)

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (h *hub) write(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case m := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(m); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
