package collab

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codraft/codraft/internal/document"
)

// EventType tags every frame exchanged over the websocket.
type EventType string

const (
	// client -> server
	EventJoinDocument       EventType = "join-document"
	EventSendChanges        EventType = "send-changes"
	EventSaveDocument       EventType = "save-document"
	EventNewDocumentCreated EventType = "new-document-created"

	// server -> clients
	EventActiveUsersUpdate EventType = "active-users-update"
	EventReceiveChanges    EventType = "receive-changes"
	EventDocumentSaved     EventType = "document-saved"
	EventDocumentsUpdated  EventType = "documents-updated"
	EventSaveError         EventType = "save-error"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is the wire envelope: a type tag plus a type-specific payload.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload registers an identity in a document session.
type JoinPayload struct {
	DocumentID string `json:"documentId"`
	Username   string `json:"username"`
}

// ChangesPayload carries an opaque editor delta. The relay never inspects
// Changes: it only requires a document id to route by.
type ChangesPayload struct {
	DocumentID string          `json:"documentId"`
	Changes    json.RawMessage `json:"changes"`
}

// SavePayload requests a whole-content overwrite save.
type SavePayload struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

// PresencePayload is the full participant snapshot for one document session.
type PresencePayload struct {
	DocumentID string   `json:"documentId"`
	Users      []string `json:"users"`
}

// SavedPayload confirms a persisted save with the updated document.
type SavedPayload struct {
	Document *document.Document `json:"document"`
}

// SaveErrorPayload is delivered to the requesting connection only.
type SaveErrorPayload struct {
	Message string `json:"message"`
}

// NewEvent builds an event with a marshaled payload. A nil payload produces a
// bare type tag (used by documents-updated).
func NewEvent(t EventType, payload interface{}) (*Event, error) {
	e := &Event{Type: t}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		e.Payload = b
	}
	return e, nil
}

// mustEncode marshals an event built from known-good payload types.
func mustEncode(t EventType, payload interface{}) []byte {
	e, err := NewEvent(t, payload)
	if err != nil {
		panic(fmt.Sprintf("encode %s event: %v", t, err))
	}
	b, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("encode %s event: %v", t, err))
	}
	return b
}

// ParseEvent validates an inbound frame at the boundary. Unknown types are
// rejected before any handler runs.
func ParseEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("malformed event: %w", err)
	}
	switch e.Type {
	case EventJoinDocument, EventSendChanges, EventSaveDocument, EventNewDocumentCreated:
		return &e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
}

// UnmarshalPayload decodes the payload into the given value.
func (e *Event) UnmarshalPayload(v interface{}) error {
	if e.Payload == nil {
		return errors.New("missing payload")
	}
	return json.Unmarshal(e.Payload, v)
}
