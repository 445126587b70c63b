package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketTransport exchanges JSON events with a relay over a single
// websocket connection.
type WebsocketTransport struct {
	url     string
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewWebsocketTransport creates a transport that will dial the given relay
// URL on Start.
func NewWebsocketTransport(url string) *WebsocketTransport {
	return &WebsocketTransport{url: url}
}

// Start dials the relay and begins delivering incoming events to handler.
// The read loop ends when the connection drops or is closed.
func (t *WebsocketTransport) Start(ctx context.Context, handler Handler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", t.url, err)
	}
	t.conn = conn

	go func() {
		for {
			var event Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			if handler != nil {
				handler(event)
			}
		}
	}()
	return nil
}

// Send writes the event to the relay.
func (t *WebsocketTransport) Send(event Event) error {
	if t.conn == nil {
		return fmt.Errorf("relay connection is not established")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("send event to relay: %w", err)
	}
	return nil
}

// Close tears down the relay connection.
func (t *WebsocketTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
