package collab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/codraft/codraft/internal/config"
	"github.com/codraft/codraft/internal/document/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *service.Service) {
	t.Helper()
	svc := service.NewMemoryService()
	hub := NewHub(config.CollabConfig{
		WriteWait:  time.Second,
		PongWait:   time.Second,
		PingPeriod: 500 * time.Millisecond,
		SendBuffer: 16,
	}, svc)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, svc
}

func connect(t *testing.T, hub *Hub, id, username string) *Client {
	t.Helper()
	c := newClient(id, username, nil, hub, 16)
	hub.Register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case b := <-c.send:
		var e Event
		require.NoError(t, json.Unmarshal(b, &e))
		return &e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame on client %s", c.ID)
		return nil
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("unexpected frame on client %s: %s", c.ID, b)
	case <-time.After(100 * time.Millisecond):
	}
}

func join(t *testing.T, hub *Hub, c *Client, docID string) {
	t.Helper()
	hub.Dispatch(c, mustEncode(EventJoinDocument, JoinPayload{DocumentID: docID, Username: c.Username}))
}

func TestJoinBroadcastsPresenceSnapshot(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")

	join(t, hub, a, "doc-1")
	e := recvEvent(t, a)
	require.Equal(t, EventActiveUsersUpdate, e.Type)
	var p PresencePayload
	require.NoError(t, e.UnmarshalPayload(&p))
	assert.Equal(t, []string{"alice"}, p.Users)

	join(t, hub, b, "doc-1")
	// snapshot goes to everyone in the session, the new joiner included
	for _, c := range []*Client{a, b} {
		e := recvEvent(t, c)
		require.Equal(t, EventActiveUsersUpdate, e.Type)
		require.NoError(t, e.UnmarshalPayload(&p))
		assert.Equal(t, []string{"alice", "bob"}, p.Users)
		assert.Equal(t, "doc-1", p.DocumentID)
	}
}

func TestChangesRelayedToPeersOnly(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "doc-1")
	join(t, hub, b, "doc-1")
	recvEvent(t, a) // presence after own join
	recvEvent(t, a) // presence after bob's join
	recvEvent(t, b)

	delta := json.RawMessage(`{"ops":[{"retain":3},{"insert":"x"}]}`)
	hub.Dispatch(a, mustEncode(EventSendChanges, ChangesPayload{DocumentID: "doc-1", Changes: delta}))

	e := recvEvent(t, b)
	require.Equal(t, EventReceiveChanges, e.Type)
	var p ChangesPayload
	require.NoError(t, e.UnmarshalPayload(&p))
	assert.Equal(t, "doc-1", p.DocumentID)
	assert.JSONEq(t, string(delta), string(p.Changes))

	expectSilence(t, a)
}

func TestChangesNotRelayedAcrossSessions(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "doc-1")
	join(t, hub, b, "doc-2")
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Dispatch(a, mustEncode(EventSendChanges, ChangesPayload{
		DocumentID: "doc-1",
		Changes:    json.RawMessage(`"abc"`),
	}))
	expectSilence(t, b)
}

func TestSaveBroadcastsToSessionAndNudgesEveryone(t *testing.T) {
	hub, svc := newTestHub(t)
	doc, err := svc.Create(context.Background(), "Notes", "draft", "alice")
	require.NoError(t, err)

	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	outsider := connect(t, hub, "c3", "carol")
	join(t, hub, a, doc.ID)
	join(t, hub, b, doc.ID)
	recvEvent(t, a)
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Dispatch(a, mustEncode(EventSaveDocument, SavePayload{DocumentID: doc.ID, Content: "final"}))

	for _, c := range []*Client{a, b} {
		e := recvEvent(t, c)
		require.Equal(t, EventDocumentSaved, e.Type)
		var p SavedPayload
		require.NoError(t, e.UnmarshalPayload(&p))
		assert.Equal(t, "final", p.Document.Content)
		assert.Len(t, p.Document.Versions, 2)

		e = recvEvent(t, c)
		assert.Equal(t, EventDocumentsUpdated, e.Type)
	}

	// connections outside the session still get the list-refresh nudge
	e := recvEvent(t, outsider)
	assert.Equal(t, EventDocumentsUpdated, e.Type)
	expectSilence(t, outsider)

	stored, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", stored.Content)
}

func TestSaveErrorGoesToRequesterOnly(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "ghost")
	join(t, hub, b, "ghost")
	recvEvent(t, a)
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Dispatch(a, mustEncode(EventSaveDocument, SavePayload{DocumentID: "ghost", Content: "x"}))

	e := recvEvent(t, a)
	require.Equal(t, EventSaveError, e.Type)
	var p SaveErrorPayload
	require.NoError(t, e.UnmarshalPayload(&p))
	assert.Equal(t, "Document not found.", p.Message)

	expectSilence(t, b)
}

func TestNewDocumentCreatedNudgesAllClients(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")

	hub.Dispatch(a, mustEncode(EventNewDocumentCreated, nil))
	assert.Equal(t, EventDocumentsUpdated, recvEvent(t, a).Type)
	assert.Equal(t, EventDocumentsUpdated, recvEvent(t, b).Type)
}

func TestDisconnectUpdatesPresenceAndDeletesEmptySessions(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "doc-1")
	join(t, hub, b, "doc-1")
	join(t, hub, b, "doc-2")
	recvEvent(t, a)
	recvEvent(t, a)
	recvEvent(t, b)
	recvEvent(t, b)

	hub.Unregister(b)

	e := recvEvent(t, a)
	require.Equal(t, EventActiveUsersUpdate, e.Type)
	var p PresencePayload
	require.NoError(t, e.UnmarshalPayload(&p))
	assert.Equal(t, []string{"alice"}, p.Users)

	// doc-2 had only bob, so the session itself must be gone
	require.Eventually(t, func() bool {
		return !hub.Registry().HasSession("doc-2")
	}, time.Second, 10*time.Millisecond)
	assert.True(t, hub.Registry().HasSession("doc-1"))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "doc-1")
	join(t, hub, b, "doc-1")
	recvEvent(t, a)
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Unregister(b)
	hub.Unregister(b)

	// exactly one presence update for alice, no duplicates
	e := recvEvent(t, a)
	require.Equal(t, EventActiveUsersUpdate, e.Type)
	expectSilence(t, a)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	hub, _ := newTestHub(t)
	a := connect(t, hub, "c1", "alice")
	b := connect(t, hub, "c2", "bob")
	join(t, hub, a, "doc-1")
	join(t, hub, b, "doc-1")
	recvEvent(t, a)
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Dispatch(a, []byte(`not json`))
	hub.Dispatch(a, mustEncode(EventSendChanges, ChangesPayload{DocumentID: ""}))
	expectSilence(t, b)
}
