// Package hub fans board events out to websocket subscribers. Each board is
// a room; a connection joins the rooms of the boards it is viewing and gets
// every event of those boards in the order the hub stamped them.
package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/events"
)

// MembershipChecker answers whether a user may see a board's events
type MembershipChecker interface {
	IsMember(ctx context.Context, boardID int, userID string) (bool, error)
}

// Config tunes queue sizes and liveness timers
type Config struct {
	QueueSize          int
	ClientBuffer       int
	PingInterval       time.Duration
	StaleAfter         time.Duration
	RevalidateInterval time.Duration
	WriteTimeout       time.Duration
	MaxMessageBytes    int64
}

// DefaultConfig returns the settings used by the server
func DefaultConfig() Config {
	return Config{
		QueueSize:          256,
		ClientBuffer:       64,
		PingInterval:       30 * time.Second,
		StaleAfter:         90 * time.Second,
		RevalidateInterval: 60 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxMessageBytes:    64 * 1024,
	}
}

// withDefaults fills unset fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = d.ClientBuffer
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.RevalidateInterval <= 0 {
		c.RevalidateInterval = d.RevalidateInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = d.MaxMessageBytes
	}
	return c
}

// client represents one websocket connection
type client struct {
	conn      *websocket.Conn
	userID    string
	send      chan []byte
	boards    map[int]bool // guarded by Hub.mu
	lastPong  time.Time
	mu        sync.Mutex // protects lastPong
	closeOnce sync.Once
}

// Hub is the realtime broadcast layer
type Hub struct {
	cfg      Config
	members  MembershipChecker
	seq      Sequencer
	relay    *Relay
	log      logrus.FieldLogger
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[*client]bool
	rooms    map[int]map[*client]bool
	verified map[int]map[string]bool // users whose membership was confirmed, per room

	queue        chan events.Event
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// Option configures a Hub
type Option func(*Hub)

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(h *Hub) { h.cfg = cfg }
}

// WithSequencer sets where board sequence numbers come from
func WithSequencer(s Sequencer) Option {
	return func(h *Hub) { h.seq = s }
}

// WithRelay routes events through Redis so several servers share rooms
func WithRelay(r *Relay) Option {
	return func(h *Hub) { h.relay = r }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Hub) { h.log = l }
}

// WithCheckOrigin sets the websocket origin policy
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// New creates a hub that authorizes joins with members
func New(members MembershipChecker, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:     DefaultConfig(),
		members: members,
		seq:     NewMemorySequencer(),
		log:     logrus.StandardLogger(),
		metrics: NewMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:  make(map[*client]bool),
		rooms:    make(map[int]map[*client]bool),
		verified: make(map[int]map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.cfg = h.cfg.withDefaults()
	h.queue = make(chan events.Event, h.cfg.QueueSize)
	return h
}

// Metrics returns the live counters
func (h *Hub) Metrics() *Metrics { return h.metrics }

// Current returns the last sequence number stamped for a board
func (h *Hub) Current(ctx context.Context, boardID int) (int64, error) {
	return h.seq.Current(ctx, boardID)
}

// Start runs the dispatch, relay and health loops until ctx is done, then
// shuts the hub down
func (h *Hub) Start(ctx context.Context) error {
	combinedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-h.ctx.Done()
		cancel()
	}()

	if h.relay != nil {
		ready := make(chan struct{})
		go h.relay.Subscribe(combinedCtx, h.deliver, ready)
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			h.log.Warn("relay subscription not confirmed yet, continuing")
		case <-combinedCtx.Done():
		}
	}

	go h.monitorHealth(combinedCtx)

	h.log.Info("hub started")
	h.dispatchLoop(combinedCtx)
	return h.Shutdown()
}

// Publish queues ev for fan-out and returns immediately. When the queue is
// full the event is dropped; subscribers notice the sequence gap and refetch.
func (h *Hub) Publish(_ context.Context, ev events.Event) {
	select {
	case h.queue <- ev:
		h.metrics.IncEventsPublished()
	default:
		h.metrics.IncEventsDropped()
		h.log.WithFields(logrus.Fields{
			"event_type": ev.Type,
			"board_id":   ev.BoardID,
		}).Warn("hub queue full, event dropped")
	}
}

// dispatchLoop stamps and fans out events one at a time, which keeps each
// board's stream in order
func (h *Hub) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.queue:
			h.dispatch(ctx, ev)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, ev events.Event) {
	if ev.Seq == 0 {
		seq, err := h.seq.Next(ctx, ev.BoardID)
		if err != nil {
			// seq 0 tells clients this event cannot be gap-checked
			h.log.WithError(err).WithField("board_id", ev.BoardID).Warn("failed to stamp event sequence")
		}
		ev.Seq = seq
	}

	if h.relay != nil {
		err := h.relay.Publish(ctx, ev)
		if err == nil {
			return
		}
		h.metrics.IncRelayFallbacks()
		h.log.WithError(err).WithField("board_id", ev.BoardID).Warn("relay unavailable, delivering locally")
	}
	h.deliver(ev)
}

// deliver sends ev to every subscriber of its board whose membership is
// still in the room's verified set, then applies the membership side effects
// the event implies
func (h *Hub) deliver(ev events.Event) {
	data, err := sonic.Marshal(events.Message{
		Version: events.ProtocolVersion,
		Type:    events.MsgEvent,
		BoardID: ev.BoardID,
		Event:   &ev,
	})
	if err != nil {
		h.log.WithError(err).WithField("event_type", ev.Type).Error("failed to encode event")
		return
	}

	var slow, revoked []*client
	h.mu.RLock()
	for c := range h.rooms[ev.BoardID] {
		if !h.verified[ev.BoardID][c.userID] {
			revoked = append(revoked, c)
			continue
		}
		if !h.sendLocked(c, data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range revoked {
		h.metrics.IncClientsEvicted()
		h.leave(c, ev.BoardID, "no longer a member of this board")
	}

	// a subscriber that cannot keep up is disconnected; it resyncs on reconnect
	for _, c := range slow {
		h.metrics.IncEventsDropped()
		h.log.WithField("user_id", c.userID).Warn("client send queue full, disconnecting")
		h.removeClient(c)
	}

	switch ev.Type {
	case events.MemberRemoved:
		var p events.MemberPayload
		if err := ev.Decode(&p); err != nil {
			h.log.WithError(err).Warn("failed to decode member payload")
			return
		}
		h.forgetMember(ev.BoardID, p.UserID)
		h.evictUser(ev.BoardID, p.UserID, "removed from board")

	case events.BoardDeleted:
		h.closeRoom(ev.BoardID, "board deleted")
		if err := h.seq.Forget(context.Background(), ev.BoardID); err != nil {
			h.log.WithError(err).WithField("board_id", ev.BoardID).Debug("failed to drop board sequence")
		}
	}
}

// ServeWS upgrades an authenticated request and serves the connection until
// it closes. userID must already be verified by the caller.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	h.HandleConn(conn, userID)
	return nil
}

// HandleConn serves an upgraded connection until it closes
func (h *Hub) HandleConn(conn *websocket.Conn, userID string) {
	c := &client{
		conn:     conn,
		userID:   userID,
		send:     make(chan []byte, h.cfg.ClientBuffer),
		boards:   make(map[int]bool),
		lastPong: time.Now(),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.updateGauges()

	log := h.log.WithField("user_id", userID)
	log.WithField("clients", h.getClientCount()).Info("client connected")

	go h.clientWriter(c)
	h.handleClient(c)

	log.WithField("clients", h.getClientCount()).Info("client disconnected")
}

// handleClient reads control frames from a connection
func (h *Hub) handleClient(c *client) {
	defer h.removeClient(c)

	c.conn.SetReadLimit(h.cfg.MaxMessageBytes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg events.Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.reply(c, events.Message{Type: events.MsgError, Error: "malformed message"})
			continue
		}
		if msg.Version != 0 && msg.Version != events.ProtocolVersion {
			h.log.Warnf("received message with protocol version %d, expected %d", msg.Version, events.ProtocolVersion)
		}

		switch msg.Type {
		case events.MsgJoin:
			h.join(c, msg.BoardID)

		case events.MsgLeave:
			h.leave(c, msg.BoardID, "")

		case events.MsgPing:
			h.reply(c, events.Message{Type: events.MsgPong})

		case events.MsgPong:
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()

		default:
			h.reply(c, events.Message{Type: events.MsgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
	}
}

// join adds c to a board's room if its user is a member of the board
func (h *Hub) join(c *client, boardID int) {
	if boardID <= 0 {
		h.reply(c, events.Message{Type: events.MsgError, Error: "invalid board id"})
		return
	}

	ok, err := h.members.IsMember(h.ctx, boardID, c.userID)
	if err != nil {
		h.log.WithError(err).WithField("board_id", boardID).Error("membership check failed")
		h.reply(c, events.Message{Type: events.MsgError, BoardID: boardID, Error: "membership check failed"})
		return
	}
	if !ok {
		h.metrics.IncJoinsDenied()
		h.reply(c, events.Message{Type: events.MsgError, BoardID: boardID, Error: "not a member of this board"})
		return
	}

	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	room := h.rooms[boardID]
	if room == nil {
		room = make(map[*client]bool)
		h.rooms[boardID] = room
	}
	room[c] = true
	c.boards[boardID] = true
	if h.verified[boardID] == nil {
		h.verified[boardID] = make(map[string]bool)
	}
	h.verified[boardID][c.userID] = true
	h.mu.Unlock()
	h.updateGauges()

	h.reply(c, events.Message{Type: events.MsgJoined, BoardID: boardID})
}

// leave removes c from a board's room. A non-empty reason means the hub
// removed the client and is reported to it.
func (h *Hub) leave(c *client, boardID int, reason string) {
	h.mu.Lock()
	h.removeFromRoomLocked(c, boardID)
	h.mu.Unlock()
	h.updateGauges()

	h.reply(c, events.Message{Type: events.MsgLeft, BoardID: boardID, Error: reason})
}

func (h *Hub) removeFromRoomLocked(c *client, boardID int) {
	delete(c.boards, boardID)
	if room := h.rooms[boardID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, boardID)
			delete(h.verified, boardID)
		}
	}
}

// forgetMember drops userID from a board's verified set
func (h *Hub) forgetMember(boardID int, userID string) {
	h.mu.Lock()
	delete(h.verified[boardID], userID)
	h.mu.Unlock()
}

// evictUser removes every connection of userID from a board's room
func (h *Hub) evictUser(boardID int, userID string, reason string) {
	h.mu.RLock()
	var targets []*client
	for c := range h.rooms[boardID] {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.metrics.IncClientsEvicted()
		h.leave(c, boardID, reason)
	}
}

// closeRoom removes every connection from a board's room
func (h *Hub) closeRoom(boardID int, reason string) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[boardID]))
	for c := range h.rooms[boardID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.leave(c, boardID, reason)
	}
}

// reply sends a control message to one client
func (h *Hub) reply(c *client, msg events.Message) {
	msg.Version = events.ProtocolVersion
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("failed to encode control message")
		return
	}
	h.mu.RLock()
	ok := h.sendLocked(c, data)
	h.mu.RUnlock()
	if !ok {
		h.log.WithField("user_id", c.userID).Debug("dropped control message")
	}
}

// sendLocked queues data without blocking. h.mu must be held, which keeps
// the send channel open for the duration.
func (h *Hub) sendLocked(c *client, data []byte) bool {
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		h.metrics.IncEventsSent()
		return true
	default:
		return false
	}
}

// clientWriter sends queued frames to a client
func (h *Hub) clientWriter(c *client) {
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// monitorHealth pings clients, drops stale ones and re-checks room membership
func (h *Hub) monitorHealth(ctx context.Context) {
	pingTicker := time.NewTicker(h.cfg.PingInterval)
	defer pingTicker.Stop()

	revalidateTicker := time.NewTicker(h.cfg.RevalidateInterval)
	defer revalidateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			h.pingAndReap()

		case <-revalidateTicker.C:
			h.revalidate(ctx)
		}
	}
}

func (h *Hub) pingAndReap() {
	ping, err := sonic.Marshal(events.Message{Version: events.ProtocolVersion, Type: events.MsgPing})
	if err != nil {
		return
	}

	// two-phase: collect under the lock, remove outside it
	now := time.Now()
	var stale []*client
	h.mu.RLock()
	for c := range h.clients {
		c.mu.Lock()
		lastPong := c.lastPong
		c.mu.Unlock()

		if now.Sub(lastPong) > h.cfg.StaleAfter {
			stale = append(stale, c)
			continue
		}
		if !h.sendLocked(c, ping) {
			h.log.WithField("user_id", c.userID).Debug("failed to send ping (queue full)")
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.log.WithField("user_id", c.userID).Info("removing stale client")
		h.removeClient(c)
	}
}

// revalidate evicts subscribers whose membership was revoked without an
// event reaching this server
func (h *Hub) revalidate(ctx context.Context) {
	type sub struct {
		c       *client
		boardID int
	}
	var subs []sub
	h.mu.RLock()
	for boardID, room := range h.rooms {
		for c := range room {
			subs = append(subs, sub{c: c, boardID: boardID})
		}
	}
	h.mu.RUnlock()

	for _, s := range subs {
		ok, err := h.members.IsMember(ctx, s.boardID, s.c.userID)
		if err != nil {
			h.log.WithError(err).Debug("membership revalidation failed")
			continue
		}
		if !ok {
			h.forgetMember(s.boardID, s.c.userID)
			h.metrics.IncClientsEvicted()
			h.leave(s.c, s.boardID, "no longer a member of this board")
		}
	}
}

// Shutdown closes every connection and stops the loops
func (h *Hub) Shutdown() error {
	h.shutdownOnce.Do(func() {
		h.log.Info("shutting down hub")
		h.cancel()

		h.mu.Lock()
		for c := range h.clients {
			c.closeOnce.Do(func() { close(c.send) })
		}
		h.clients = make(map[*client]bool)
		h.rooms = make(map[int]map[*client]bool)
		h.verified = make(map[int]map[string]bool)
		h.mu.Unlock()
		h.updateGauges()
	})
	return nil
}

func (h *Hub) getClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) updateGauges() {
	h.mu.RLock()
	clients, rooms := len(h.clients), len(h.rooms)
	h.mu.RUnlock()
	h.metrics.SetConnectedClients(int32(clients))
	h.metrics.SetRooms(int32(rooms))
}

// removeClient unregisters a client and closes its send queue; the writer
// then closes the connection
func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for boardID := range c.boards {
		h.removeFromRoomLocked(c, boardID)
	}
	c.closeOnce.Do(func() { close(c.send) })
	h.mu.Unlock()

	// unblock the reader if it is still waiting
	_ = c.conn.SetReadDeadline(time.Now())
	h.updateGauges()
}
