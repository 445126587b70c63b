// Command relay is a websocket fan-out hub: every campaign_saved event a
// client sends is rebroadcast to every other connected client. The relay
// never inspects or stores state; it only moves freshness hints.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ematosg/spiretracker/internal/platform/cmd"
	"github.com/ematosg/spiretracker/internal/platform/config"
)

type relayConfig struct {
	Addr string `env:"SPIRETRACKER_RELAY_ADDR" envDefault:"localhost:8090"`
}

func main() {
	var cfg relayConfig
	fs := flag.NewFlagSet(cmd.ServiceRelay, flag.ExitOnError)
	addr := fs.String("addr", "", "address to listen on (overrides env)")
	if err := cmd.ParseConfigFromArgs(&cfg, fs, os.Args[1:]); err != nil {
		config.Exitf("relay: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx := context.Background()
	if err := cmd.RunWithTelemetry(ctx, cmd.ServiceRelay, func(ctx context.Context) error {
		return run(ctx, cfg)
	}); err != nil {
		config.Exitf("relay: %v", err)
	}
}

func run(ctx context.Context, cfg relayConfig) error {
	hub := newHub()

	mux := http.NewServeMux()
	mux.HandleFunc("/relay", hub.handle)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	errs := make(chan error, 1)
	go func() {
		log.Printf("relay listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-exit:
		log.Printf("signal caught: %v", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// hub tracks connected clients and fans messages out between them.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	nextID  int
	clients map[int]*client
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[int]*client),
	}
}

func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}

	id := h.add(conn)
	defer h.remove(id)
	log.Printf("client %d connected from %s", id, r.RemoteAddr)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("client %d disconnected: %v", id, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.broadcast(id, payload)
	}
}

func (h *hub) add(conn *websocket.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.clients[h.nextID] = &client{conn: conn}
	return h.nextID
}

func (h *hub) remove(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// broadcast relays the payload to every client except the sender.
func (h *hub) broadcast(fromID int, payload []byte) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != fromID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.writeMu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.writeMu.Unlock()
		if err != nil {
			log.Printf("relay write failed: %v", err)
		}
	}
}
