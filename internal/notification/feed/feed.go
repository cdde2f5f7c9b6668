// Package feed broadcasts newly-recorded notifications over a websocket
// connection, an operational convenience for the (out-of-scope) ops UI to
// attach to. No business logic depends on it — if nobody is connected,
// Broadcast is a no-op.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"paysaga/internal/notification/domain"
	"paysaga/internal/platform/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type event struct {
	PaymentID string `json:"payment_id"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// Feed fans one notification out to every currently-connected client.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func New() *Feed {
	return &Feed{clients: make(map[*websocket.Conn]struct{})}
}

// Handler upgrades an HTTP request to a websocket connection and registers
// it as a feed subscriber until it disconnects.
func (f *Feed) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("notification: websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		f.mu.Unlock()
		_ = conn.Close()
	}()

	// Drain and discard inbound frames; this feed is broadcast-only, but we
	// still need to read so the connection notices a client-initiated close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast fans a notification out to every connected client.
func (f *Feed) Broadcast(paymentID string, outcome domain.Outcome, reason string) {
	payload, err := json.Marshal(event{PaymentID: paymentID, Outcome: string(outcome), Reason: reason})
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(f.clients, conn)
		}
	}
}
