package collab

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codraft/codraft/internal/config"
	"github.com/codraft/codraft/internal/document/service"
	"github.com/codraft/codraft/internal/storage"
	"github.com/codraft/codraft/pkg/logger"
	"github.com/codraft/codraft/pkg/metrics"
)

// Hub is the realtime coordinator: it tracks connected clients, owns the
// session registry, relays edits, and drives save fan-out. All registry and
// client-set mutations funnel through one event loop fed by channels, so
// handlers never race on membership state; saves run in their own goroutine
// because they block on the document store.
type Hub struct {
	cfg      config.CollabConfig
	docs     *service.Service
	registry *Registry
	archive  *storage.MinIOStorage

	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	done       chan struct{}
}

type inboundFrame struct {
	client *Client
	data   []byte
}

func NewHub(cfg config.CollabConfig, docs *service.Service) *Hub {
	return &Hub{
		cfg:        cfg,
		docs:       docs,
		registry:   NewRegistry(),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		inbound:    make(chan inboundFrame, 256),
		done:       make(chan struct{}),
	}
}

// SetArchive enables optional snapshot archiving to object storage after
// successful saves.
func (h *Hub) SetArchive(s *storage.MinIOStorage) { h.archive = s }

// Registry exposes the session registry for read-only inspection.
func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Register(c *Client)              { h.register <- c }
func (h *Hub) Unregister(c *Client)            { h.unregister <- c }
func (h *Hub) Dispatch(c *Client, data []byte) { h.inbound <- inboundFrame{client: c, data: data} }

// Run processes registration, disconnects and inbound frames until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleDisconnect(c)
		case f := <-h.inbound:
			h.handleFrame(f.client, f.data)
		}
	}
}

func (h *Hub) Stop() { close(h.done) }

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.ConnectedClients.Set(float64(n))
	logger.Infof("client connected: %s (user %s, %d total)", c.ID, c.Username, n)
}

// handleDisconnect removes the client from every session it joined,
// re-broadcasts presence for each affected session and garbage-collects
// sessions left empty. Safe to call more than once per client.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	metrics.ConnectedClients.Set(float64(n))

	for docID, users := range h.registry.LeaveAll(c) {
		if len(users) == 0 {
			continue // session deleted, nobody left to notify
		}
		h.broadcastRoom(docID, mustEncode(EventActiveUsersUpdate, PresencePayload{DocumentID: docID, Users: users}))
	}
	metrics.OpenSessions.Set(float64(h.registry.SessionCount()))
	logger.Infof("client disconnected: %s (user %s)", c.ID, c.Username)
}

func (h *Hub) handleFrame(c *Client, data []byte) {
	e, err := ParseEvent(data)
	if err != nil {
		logger.Debugf("dropping frame from %s: %v", c.ID, err)
		return
	}
	switch e.Type {
	case EventJoinDocument:
		h.handleJoin(c, e)
	case EventSendChanges:
		h.handleChanges(c, e)
	case EventSaveDocument:
		var p SavePayload
		if err := e.UnmarshalPayload(&p); err != nil || p.DocumentID == "" {
			logger.Debugf("dropping save from %s: bad payload", c.ID)
			return
		}
		// persistence I/O must not stall the relay loop
		go h.handleSave(c, p)
	case EventNewDocumentCreated:
		h.broadcastAll(mustEncode(EventDocumentsUpdated, nil))
	}
}

func (h *Hub) handleJoin(c *Client, e *Event) {
	var p JoinPayload
	if err := e.UnmarshalPayload(&p); err != nil || p.DocumentID == "" {
		logger.Debugf("dropping join from %s: bad payload", c.ID)
		return
	}
	users := h.registry.Join(p.DocumentID, c)
	metrics.OpenSessions.Set(float64(h.registry.SessionCount()))
	logger.Infof("user %s joined document %s (%d present)", c.Username, p.DocumentID, len(users))
	// full snapshot to everyone in the session, the new joiner included
	h.broadcastRoom(p.DocumentID, mustEncode(EventActiveUsersUpdate, PresencePayload{DocumentID: p.DocumentID, Users: users}))
}

// handleChanges retransmits the payload to every session peer except the
// sender. No ordering across concurrent senders, no merge: whichever frame a
// peer applies last wins its local state.
func (h *Hub) handleChanges(c *Client, e *Event) {
	var p ChangesPayload
	if err := e.UnmarshalPayload(&p); err != nil || p.DocumentID == "" {
		logger.Debugf("dropping changes from %s: bad payload", c.ID)
		return
	}
	frame := mustEncode(EventReceiveChanges, p)
	for _, peer := range h.registry.Peers(p.DocumentID, c) {
		h.deliver(peer, frame)
	}
	metrics.ChangesRelayed.Inc()
}

func (h *Hub) handleSave(c *Client, p SavePayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := h.docs.Save(ctx, p.DocumentID, p.Content)
	if err != nil {
		msg := "Failed to save document."
		if errors.Is(err, service.ErrNotFound) {
			msg = "Document not found."
			metrics.DocumentSaves.WithLabelValues("not_found").Inc()
		} else {
			metrics.DocumentSaves.WithLabelValues("error").Inc()
		}
		logger.Errorf("save of document %s failed: %v", p.DocumentID, err)
		// failure goes to the requesting connection only
		h.deliver(c, mustEncode(EventSaveError, SaveErrorPayload{Message: msg}))
		return
	}

	metrics.DocumentSaves.WithLabelValues("ok").Inc()
	logger.Infof("document %s saved by %s (%d versions)", d.ID, c.Username, len(d.Versions))

	// confirmation to the whole session, saver included, then a global nudge
	// so dashboards outside the session refresh their lists
	h.broadcastRoom(p.DocumentID, mustEncode(EventDocumentSaved, SavedPayload{Document: d}))
	h.broadcastAll(mustEncode(EventDocumentsUpdated, nil))

	if h.archive != nil {
		go func() {
			actx, acancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer acancel()
			if err := h.archive.ArchiveSnapshot(actx, d); err != nil {
				logger.Warnf("snapshot archive for %s failed: %v", d.ID, err)
			}
		}()
	}
}

func (h *Hub) broadcastRoom(documentID string, frame []byte) {
	for _, m := range h.registry.Members(documentID) {
		h.deliver(m, frame)
	}
}

func (h *Hub) broadcastAll(frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, frame)
	}
}

// deliver is fire-and-forget: a client whose buffer is full is evicted rather
// than allowed to stall the sender.
func (h *Hub) deliver(c *Client, frame []byte) {
	if c.trySend(frame) {
		return
	}
	logger.Warnf("client %s send buffer full, evicting", c.ID)
	select {
	case h.unregister <- c:
	default:
		go func() { h.unregister <- c }()
	}
}
