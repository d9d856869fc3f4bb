// Package wstransport carries bus traffic over websockets. The coordinator
// runs a Hub; each satellite process dials it with Dial.
package wstransport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
)

// TagParam is the query parameter a satellite identifies itself with.
const TagParam = "tag"

// Subprotocol is negotiated on every connection.
const Subprotocol = "ipcbus.v1"

const readLimit = 4 << 20

// Peer is the coordinator's stable handle for one satellite. The live
// connection behind it may come and go; the handle does not.
type Peer struct {
	tag string

	mu      sync.Mutex
	conn    *websocket.Conn
	session uuid.UUID
	since   time.Time
}

// Tag returns the satellite tag.
func (p *Peer) Tag() string { return p.tag }

// Connected reports whether a satellite is currently attached.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Send writes msg to the attached satellite connection.
func (p *Peer) Send(ctx context.Context, msg transport.Message) error {
	p.mu.Lock()
	c := p.conn
	p.mu.Unlock()
	if c == nil {
		return transport.ErrNotConnected
	}
	return wsjson.Write(ctx, c, msg)
}

func (p *Peer) attach(c *websocket.Conn) (session uuid.UUID, replaced *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	replaced = p.conn
	p.conn = c
	p.session = uuid.New()
	p.since = time.Now()
	return p.session, replaced
}

// detach clears the connection only if c is still the attached one; a
// reconnect may already have replaced it.
func (p *Peer) detach(c *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == c {
		p.conn = nil
		p.session = uuid.Nil
	}
}

// PeerStatus is a point-in-time view of a Peer.
type PeerStatus struct {
	Tag       string    `json:"tag"`
	Connected bool      `json:"connected"`
	Session   string    `json:"session,omitempty"`
	Since     time.Time `json:"since,omitempty"`
}

func (p *Peer) status() PeerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PeerStatus{Tag: p.tag, Connected: p.conn != nil}
	if st.Connected {
		st.Session = p.session.String()
		st.Since = p.since
	}
	return st
}

// Hub accepts satellite connections for a fixed set of tags and feeds
// their traffic to a transport.Handler.
type Hub struct {
	hmu     sync.RWMutex
	handler transport.Handler

	log            logger.Logger
	order          []string
	peers          map[string]*Peer
	originPatterns []string
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithOriginPatterns allows browser origins matching patterns to connect.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.originPatterns = patterns }
}

// NewHub creates a hub for the given satellite tags. Duplicate tags are
// collapsed. Connections are refused until a handler is set with Handle.
func NewHub(tags []string, log logger.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		log:   log,
		peers: make(map[string]*Peer, len(tags)),
	}
	for _, tag := range tags {
		if _, dup := h.peers[tag]; dup {
			continue
		}
		h.order = append(h.order, tag)
		h.peers[tag] = &Peer{tag: tag}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle sets the handler inbound messages are delivered to.
func (h *Hub) Handle(handler transport.Handler) {
	h.hmu.Lock()
	h.handler = handler
	h.hmu.Unlock()
}

func (h *Hub) currentHandler() transport.Handler {
	h.hmu.RLock()
	defer h.hmu.RUnlock()
	return h.handler
}

// Peers returns the handles in configuration order.
func (h *Hub) Peers() []*Peer {
	out := make([]*Peer, 0, len(h.order))
	for _, tag := range h.order {
		out = append(out, h.peers[tag])
	}
	return out
}

// Peer looks up the handle for tag.
func (h *Hub) Peer(tag string) (*Peer, bool) {
	p, ok := h.peers[tag]
	return p, ok
}

// Status reports every peer in configuration order.
func (h *Hub) Status() []PeerStatus {
	out := make([]PeerStatus, 0, len(h.order))
	for _, p := range h.Peers() {
		out = append(out, p.status())
	}
	return out
}

// ServeHTTP upgrades the request and pumps the satellite's messages to the
// handler until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tag := r.URL.Query().Get(TagParam)

	handler := h.currentHandler()
	if handler == nil {
		http.Error(w, "coordinator not ready", http.StatusServiceUnavailable)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn(ctx, "websocket accept failed", "tag", tag, "error", err)
		return
	}
	c.SetReadLimit(readLimit)

	peer, ok := h.peers[tag]
	if !ok {
		h.log.Warn(ctx, "rejecting unknown satellite", "tag", tag, "remote_addr", r.RemoteAddr)
		_ = c.Close(websocket.StatusPolicyViolation, transport.ErrUnknownSatellite.Message)
		return
	}

	session, replaced := peer.attach(c)
	if replaced != nil {
		go func() { _ = replaced.Close(websocket.StatusGoingAway, "replaced by a newer connection") }()
	}
	h.log.Info(ctx, "satellite connected", "tag", tag, "session", session.String(), "remote_addr", r.RemoteAddr)
	defer func() {
		peer.detach(c)
		_ = c.CloseNow()
		h.log.Info(context.Background(), "satellite disconnected", "tag", tag, "session", session.String())
	}()

	for {
		var msg transport.Message
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			if !isClosure(err) && !errors.Is(err, context.Canceled) {
				h.log.Warn(ctx, "satellite read failed", "tag", tag, "error", err)
			}
			return
		}
		msg.Origin = tag
		handler.HandleMessage(ctx, msg, peer)
	}
}

// Close drops every live connection.
func (h *Hub) Close() {
	for _, p := range h.Peers() {
		p.mu.Lock()
		c := p.conn
		p.mu.Unlock()
		if c != nil {
			_ = c.Close(websocket.StatusGoingAway, "coordinator shutting down")
		}
	}
}

func isClosure(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

var _ transport.Sender = (*Peer)(nil)
