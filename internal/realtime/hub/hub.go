// Package hub is the server side of the realtime channel: it fans out
// published messages to every connected client session and relays the
// messages a session sends to the other sessions.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	realtimews "github.com/slok/packlaunch/internal/realtime/websocket"
)

const writeTimeout = 5 * time.Second

// Config is the configuration for the hub.
type Config struct {
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "realtime.Hub"})
	return nil
}

// Hub tracks client sessions and broadcasts messages to them.
type Hub struct {
	upgrader websocket.Upgrader
	router   chi.Router
	logger   log.Logger

	mu       sync.RWMutex
	sessions map[string]*realtimews.Conn
}

// New creates a new hub.
func New(cfg Config) (*Hub, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   cfg.Logger,
		sessions: map[string]*realtimews.Conn{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", h.handleWS)
	r.Post("/publish", h.handlePublish)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h.router = r

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.router.ServeHTTP(w, r) }

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends the message to every connected session. Sessions that fail
// to receive it are dropped. It returns the number of sessions reached.
func (h *Hub) Broadcast(ctx context.Context, env model.Envelope) int {
	return h.broadcast(ctx, env, "")
}

func (h *Hub) broadcast(ctx context.Context, env model.Envelope, except string) int {
	h.mu.RLock()
	targets := make(map[string]*realtimews.Conn, len(h.sessions))
	for id, c := range h.sessions {
		if id == except {
			continue
		}
		targets[id] = c
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	sent := 0
	for id, c := range targets {
		if err := c.WriteMessage(ctx, env); err != nil {
			h.logger.Warningf("could not send %q to session %s: %s", env.Type, id, err)
			h.drop(id, c)
			continue
		}
		sent++
	}

	return sent
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = map[string]*realtimews.Conn{}
	h.mu.Unlock()

	for _, c := range sessions {
		_ = c.Close()
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(realtimews.SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warningf("could not upgrade session %s: %s", id, err)
		return
	}
	conn := realtimews.NewConn(ws, h.logger.WithValues(log.Kv{"session": id}))

	h.mu.Lock()
	if old, ok := h.sessions[id]; ok {
		_ = old.Close()
	}
	h.sessions[id] = conn
	h.mu.Unlock()
	h.logger.Debugf("session %s connected", id)

	for {
		env, err := conn.ReadMessage(r.Context())
		if err != nil {
			break
		}
		h.broadcast(r.Context(), env, id)
	}

	h.drop(id, conn)
	h.logger.Debugf("session %s disconnected", id)
}

func (h *Hub) handlePublish(w http.ResponseWriter, r *http.Request) {
	var env model.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, fmt.Sprintf("invalid message: %s", err), http.StatusBadRequest)
		return
	}
	if env.Type == "" {
		http.Error(w, "message type is required", http.StatusBadRequest)
		return
	}

	sent := h.Broadcast(r.Context(), env)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"sessions": sent})
}

func (h *Hub) drop(id string, c *realtimews.Conn) {
	h.mu.Lock()
	if h.sessions[id] == c {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	_ = c.Close()
}
