package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mpeters88/chatdesk/internal/tenancy"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// Envelope is the wire format on the agent console socket, both directions.
type Envelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

const (
	EnvelopeTakeover = "takeover"
	EnvelopeRelease  = "release"
	EnvelopeReply    = "reply"
	EnvelopeVisitor  = "visitor_message"
	EnvelopeError    = "error"
)

// ReplySink receives agent-authored replies so they can be persisted and
// forwarded to the visitor channel.
type ReplySink interface {
	AgentReply(ctx context.Context, orgID, sessionID, text string) error
}

// agentConn serializes writes to one console socket. gorilla/websocket
// supports at most one concurrent writer per connection, and visitor
// notifications arrive from arbitrary request goroutines while the read
// loop may be answering an envelope on the same socket.
type agentConn struct {
	writeMu sync.Mutex
	ws      *websocket.Conn
}

func (c *agentConn) writeMessage(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *agentConn) writeJSON(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

// Hub fans visitor messages out to connected agent consoles and routes agent
// actions back. One hub serves all orgs; connections are keyed per org.
type Hub struct {
	modes  *ModeStore
	sink   ReplySink
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[string]map[*agentConn]struct{}

	upgrader websocket.Upgrader
}

func NewHub(modes *ModeStore, sink ReplySink, logger *logging.Logger) *Hub {
	if modes == nil {
		panic("agent: mode store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		modes:  modes,
		sink:   sink,
		logger: logger,
		conns:  make(map[string]map[*agentConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetSink installs the reply sink. The hub and the conversation pipeline
// reference each other, so the sink is attached after both exist. Call
// before serving traffic.
func (h *Hub) SetSink(sink ReplySink) {
	h.sink = sink
}

// RegisterRoutes mounts the console socket under the admin router.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/agent/ws", h.handleSocket)
}

func (h *Hub) handleSocket(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing organization", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("agent socket upgrade failed", "org_id", orgID, "error", err)
		return
	}
	conn := &agentConn{ws: ws}

	h.add(orgID, conn)
	defer h.remove(orgID, conn)

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}
		if err := h.handleEnvelope(r.Context(), orgID, env); err != nil {
			h.writeEnvelope(conn, Envelope{
				Type:      EnvelopeError,
				SessionID: env.SessionID,
				Text:      err.Error(),
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

func (h *Hub) handleEnvelope(ctx context.Context, orgID string, env Envelope) error {
	switch env.Type {
	case EnvelopeTakeover:
		return h.modes.Enable(ctx, orgID, env.SessionID)
	case EnvelopeRelease:
		return h.modes.Disable(ctx, orgID, env.SessionID)
	case EnvelopeReply:
		if h.sink == nil {
			return nil
		}
		return h.sink.AgentReply(ctx, orgID, env.SessionID, env.Text)
	default:
		h.logger.Warn("unknown agent envelope", "org_id", orgID, "type", env.Type)
		return nil
	}
}

// NotifyVisitorMessage pushes a visitor turn to every console watching the
// org. Delivery is best effort; a dead console is dropped on write failure.
func (h *Hub) NotifyVisitorMessage(orgID, sessionID, text string) {
	if h == nil {
		return
	}
	env := Envelope{
		Type:      EnvelopeVisitor,
		SessionID: sessionID,
		Text:      text,
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*agentConn, 0, len(h.conns[orgID]))
	for c := range h.conns[orgID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeMessage(payload); err != nil {
			h.remove(orgID, c)
		}
	}
}

func (h *Hub) writeEnvelope(conn *agentConn, env Envelope) {
	if err := conn.writeJSON(env); err != nil {
		h.logger.Warn("agent socket write failed", "error", err)
	}
}

func (h *Hub) add(orgID string, conn *agentConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[orgID] == nil {
		h.conns[orgID] = make(map[*agentConn]struct{})
	}
	h.conns[orgID][conn] = struct{}{}
}

func (h *Hub) remove(orgID string, conn *agentConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[orgID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, orgID)
		}
	}
	_ = conn.ws.Close()
}
