package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/gorilla/websocket"

	"community-service/internal/models"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// eventWriter serializes writes to one websocket connection; gorilla permits
// a single concurrent writer.
type eventWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *eventWriter) Write(event models.ChatEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(event)
}
