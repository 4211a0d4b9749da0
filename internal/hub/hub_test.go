package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/events"
)

// ============================================================================
// Test helpers
// ============================================================================

type fakeMembers struct {
	mu     sync.Mutex
	boards map[int]map[string]bool
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{boards: make(map[int]map[string]bool)}
}

func (f *fakeMembers) IsMember(_ context.Context, boardID int, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boards[boardID][userID], nil
}

func (f *fakeMembers) add(boardID int, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boards[boardID] == nil {
		f.boards[boardID] = make(map[string]bool)
	}
	for _, u := range users {
		f.boards[boardID][u] = true
	}
}

func (f *fakeMembers) remove(boardID int, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.boards[boardID], user)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// startHub runs a hub behind a test server; the user id is taken from the
// "user" query parameter
func startHub(t *testing.T, members MembershipChecker, opts ...Option) (*Hub, string) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	h := New(members, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Start(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg events.Message) {
	t.Helper()
	msg.Version = events.ProtocolVersion
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) events.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.Message
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Unexpected message: %s", data)
	}
}

func join(t *testing.T, conn *websocket.Conn, boardID int) {
	t.Helper()
	send(t, conn, events.Message{Type: events.MsgJoin, BoardID: boardID})
	msg := read(t, conn)
	require.Equal(t, events.MsgJoined, msg.Type, "join failed: %s", msg.Error)
	require.Equal(t, boardID, msg.BoardID)
}

func publish(t *testing.T, h *Hub, boardID int, typ events.EventType, payload any) {
	t.Helper()
	ev, err := events.New(boardID, typ, "carol", payload)
	require.NoError(t, err)
	h.Publish(context.Background(), ev)
}

// ============================================================================
// Fan-out
// ============================================================================

func TestHub_FanOutToJoinedBoardOnly(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice", "bob", "carol")
	members.add(2, "dave")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	dave := dial(t, url, "dave")
	join(t, alice, 1)
	join(t, bob, 1)
	join(t, dave, 2)

	publish(t, h, 1, events.TaskMoved, events.TaskMovedPayload{SourceListID: 1, DestinationListID: 2})

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := read(t, conn)
		require.Equal(t, events.MsgEvent, msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, events.TaskMoved, msg.Event.Type)
		assert.Equal(t, 1, msg.Event.BoardID)
		assert.Equal(t, int64(1), msg.Event.Seq)
		expectSilence(t, conn)
	}
	expectSilence(t, dave)

	snap := h.Metrics().GetSnapshot()
	assert.Equal(t, int32(3), snap.ConnectedClients)
	assert.Equal(t, int32(2), snap.Rooms)
}

func TestHub_PreservesOrderAndSequence(t *testing.T) {
	members := newFakeMembers()
	members.add(7, "alice")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	join(t, alice, 7)

	for i := 0; i < 20; i++ {
		publish(t, h, 7, events.TaskUpdated, map[string]int{"n": i})
	}
	for i := 0; i < 20; i++ {
		msg := read(t, alice)
		require.NotNil(t, msg.Event)
		assert.Equal(t, int64(i+1), msg.Event.Seq)
		var p map[string]int
		require.NoError(t, msg.Event.Decode(&p))
		assert.Equal(t, i, p["n"])
	}

	seq, err := h.Current(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(20), seq)
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	join(t, alice, 1)
	send(t, alice, events.Message{Type: events.MsgLeave, BoardID: 1})
	msg := read(t, alice)
	assert.Equal(t, events.MsgLeft, msg.Type)
	assert.Empty(t, msg.Error)

	publish(t, h, 1, events.ListCreated, nil)
	expectSilence(t, alice)
}

// ============================================================================
// Authorization
// ============================================================================

func TestHub_JoinDeniedForNonMember(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice")
	h, url := startHub(t, members)

	mallory := dial(t, url, "mallory")
	send(t, mallory, events.Message{Type: events.MsgJoin, BoardID: 1})
	msg := read(t, mallory)
	assert.Equal(t, events.MsgError, msg.Type)
	assert.Equal(t, 1, msg.BoardID)

	publish(t, h, 1, events.TaskCreated, nil)
	expectSilence(t, mallory)
	assert.Equal(t, int64(1), h.Metrics().JoinsDenied.Load())
}

func TestHub_MemberRemovedIsEvicted(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice", "bob")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	join(t, alice, 1)
	join(t, bob, 1)

	members.remove(1, "bob")
	publish(t, h, 1, events.MemberRemoved, events.MemberPayload{BoardID: 1, UserID: "bob", Members: []string{"alice"}})

	// the removed member sees the removal itself, then a left notice
	msg := read(t, bob)
	require.NotNil(t, msg.Event)
	assert.Equal(t, events.MemberRemoved, msg.Event.Type)
	msg = read(t, bob)
	assert.Equal(t, events.MsgLeft, msg.Type)
	assert.NotEmpty(t, msg.Error)

	assert.Equal(t, events.MemberRemoved, read(t, alice).Event.Type)

	publish(t, h, 1, events.TaskCreated, nil)
	assert.Equal(t, events.TaskCreated, read(t, alice).Event.Type)
	expectSilence(t, bob)
	assert.Equal(t, int64(1), h.Metrics().ClientsEvicted.Load())
}

func TestHub_DeliveryChecksVerifiedMembers(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice", "bob")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	join(t, alice, 1)
	join(t, bob, 1)

	// bob's membership is dropped from the room without an eviction
	h.forgetMember(1, "bob")

	publish(t, h, 1, events.TaskCreated, nil)
	assert.Equal(t, events.TaskCreated, read(t, alice).Event.Type)

	msg := read(t, bob)
	assert.Equal(t, events.MsgLeft, msg.Type, "the event must not reach bob")
	assert.Equal(t, 1, msg.BoardID)
	expectSilence(t, bob)
	assert.Equal(t, int64(1), h.Metrics().ClientsEvicted.Load())
}

func TestHub_MemberRemovedClearsVerifiedSet(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice", "bob")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	join(t, alice, 1)
	join(t, bob, 1)

	publish(t, h, 1, events.MemberRemoved, events.MemberPayload{BoardID: 1, UserID: "bob", Members: []string{"alice"}})
	assert.Equal(t, events.MemberRemoved, read(t, alice).Event.Type)
	assert.Equal(t, events.MemberRemoved, read(t, bob).Event.Type)

	verified := func(user string) bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.verified[1][user]
	}
	require.Eventually(t, func() bool { return !verified("bob") }, time.Second, 10*time.Millisecond)
	assert.True(t, verified("alice"))
}

func TestHub_BoardDeletedClosesRoom(t *testing.T) {
	members := newFakeMembers()
	members.add(3, "alice")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	join(t, alice, 3)

	publish(t, h, 3, events.BoardDeleted, events.BoardDeletedPayload{BoardID: 3})
	assert.Equal(t, events.BoardDeleted, read(t, alice).Event.Type)
	assert.Equal(t, events.MsgLeft, read(t, alice).Type)

	require.Eventually(t, func() bool {
		return h.Metrics().Rooms.Load() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_RevalidateEvictsRevokedMembers(t *testing.T) {
	members := newFakeMembers()
	members.add(1, "alice")
	h, url := startHub(t, members)

	alice := dial(t, url, "alice")
	join(t, alice, 1)

	members.remove(1, "alice")
	h.revalidate(context.Background())

	msg := read(t, alice)
	assert.Equal(t, events.MsgLeft, msg.Type)
	assert.Equal(t, 1, msg.BoardID)
}

// ============================================================================
// Liveness
// ============================================================================

func TestHub_AnswersPing(t *testing.T) {
	_, url := startHub(t, newFakeMembers())

	conn := dial(t, url, "alice")
	send(t, conn, events.Message{Type: events.MsgPing})
	assert.Equal(t, events.MsgPong, read(t, conn).Type)
}

func TestHub_PingsAndReapsStaleClients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleAfter = 50 * time.Millisecond
	h, url := startHub(t, newFakeMembers(), WithConfig(cfg))

	conn := dial(t, url, "alice")
	require.Eventually(t, func() bool {
		return h.Metrics().ConnectedClients.Load() == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	h.pingAndReap()

	require.Eventually(t, func() bool {
		return h.Metrics().ConnectedClients.Load() == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestHub_RejectsUnknownMessage(t *testing.T) {
	_, url := startHub(t, newFakeMembers())

	conn := dial(t, url, "alice")
	send(t, conn, events.Message{Type: "subscribe"})
	msg := read(t, conn)
	assert.Equal(t, events.MsgError, msg.Type)
}

// ============================================================================
// Relay
// ============================================================================

func TestHub_RelayAcrossServers(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	members := newFakeMembers()
	members.add(1, "alice", "bob")
	seq := NewRedisSequencer(rc, "test:")

	hubA, _ := startHub(t, members, WithRelay(NewRelay(rc, "test:", quietLogger())), WithSequencer(seq))
	_, urlB := startHub(t, members, WithRelay(NewRelay(rc, "test:", quietLogger())), WithSequencer(seq))

	bob := dial(t, urlB, "bob")
	join(t, bob, 1)

	publish(t, hubA, 1, events.TaskMoved, nil)
	publish(t, hubA, 1, events.TaskMoved, nil)

	first := read(t, bob)
	second := read(t, bob)
	require.NotNil(t, first.Event)
	require.NotNil(t, second.Event)
	assert.Equal(t, int64(1), first.Event.Seq)
	assert.Equal(t, int64(2), second.Event.Seq)
	expectSilence(t, bob)

	current, err := seq.Current(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}

func TestHub_RelayFailureFallsBackToLocalDelivery(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer rc.Close()

	members := newFakeMembers()
	members.add(1, "alice")
	h, url := startHub(t, members, WithRelay(NewRelay(rc, "test:", quietLogger())))

	alice := dial(t, url, "alice")
	join(t, alice, 1)

	m.Close()
	publish(t, h, 1, events.ListCreated, nil)

	msg := read(t, alice)
	require.NotNil(t, msg.Event)
	assert.Equal(t, events.ListCreated, msg.Event.Type)
	assert.Equal(t, int64(1), h.Metrics().RelayFallbacks.Load())
}

func TestMemorySequencer(t *testing.T) {
	s := NewMemorySequencer()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := s.Next(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	n, _ := s.Next(ctx, 2)
	assert.Equal(t, int64(1), n, "boards are sequenced independently")

	require.NoError(t, s.Forget(ctx, 1))
	cur, _ := s.Current(ctx, 1)
	assert.Zero(t, cur)
}
