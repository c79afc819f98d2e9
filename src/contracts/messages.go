package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the `type` field of a push envelope.
type MessageType string

const (
	MessageContactCreated     MessageType = "contact_created"
	MessageContactUpdated     MessageType = "contact_updated"
	MessageContactDeleted     MessageType = "contact_deleted"
	MessageContactApproved    MessageType = "contact_approved"
	MessageContactRejected    MessageType = "contact_rejected"
	MessageAnalyticsUpdated   MessageType = "analytics_updated"
	MessageSystemNotification MessageType = "system_notification"
)

// ContactMessageTypes are the push types that mutate the contact collection.
var ContactMessageTypes = []MessageType{
	MessageContactCreated,
	MessageContactUpdated,
	MessageContactDeleted,
	MessageContactApproved,
	MessageContactRejected,
}

// Known reports whether t is a message type this client understands.
func (t MessageType) Known() bool {
	switch t {
	case MessageContactCreated, MessageContactUpdated, MessageContactDeleted,
		MessageContactApproved, MessageContactRejected,
		MessageAnalyticsUpdated, MessageSystemNotification:
		return true
	}
	return false
}

// Envelope is the JSON frame delivered by the push endpoint.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// TopicContactEvents carries push envelopes relayed into the broker.
// Key: {contact_id}
const TopicContactEvents = "mwa.contacts.events"

var (
	// ErrUnknownMessageType is returned for envelopes with a type this client does not know.
	// Callers ignore these so newer servers can add types freely.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedMessage is returned when the envelope or its payload cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")
)

// Event is a decoded push message. The concrete types are ContactEvent, ContactDeletedEvent,
// AnalyticsEvent and NotificationEvent.
type Event interface {
	MessageType() MessageType
}

// ContactEvent carries the contact payload of created/updated/approved/rejected messages.
// Contact holds the decoded payload; Data keeps the raw fields so a partial payload can be
// merged onto a contact the client already has.
type ContactEvent struct {
	Kind    MessageType
	Contact Contact
	Data    json.RawMessage
}

func (e ContactEvent) MessageType() MessageType { return e.Kind }

// MergeInto applies the event to a contact already held by the client. Approvals and
// rejections change only the status and rejection reason; updates overlay the fields present
// in the payload. Created events replace the contact.
func (e ContactEvent) MergeInto(existing Contact) (Contact, error) {
	out := existing.Clone()
	switch e.Kind {
	case MessageContactApproved:
		out.Status = StatusApproved
		out.RejectionReason = ""
	case MessageContactRejected:
		out.Status = StatusRejected
		if e.Contact.RejectionReason != "" {
			out.RejectionReason = e.Contact.RejectionReason
		}
	case MessageContactUpdated:
		if len(e.Data) == 0 {
			return e.Contact.Clone(), nil
		}
		if err := json.Unmarshal(e.Data, &out); err != nil {
			return existing, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, e.Kind, err)
		}
	default:
		return e.Contact.Clone(), nil
	}
	if !e.Contact.UpdatedAt.IsZero() {
		out.UpdatedAt = e.Contact.UpdatedAt
	}
	out.ID = existing.ID
	return out, nil
}

// HasDetails reports whether the payload carried more than the contact id.
func (e ContactEvent) HasDetails() bool {
	c := e.Contact
	return c.Name != "" || c.Email != "" || c.Phone != "" || c.Company != ""
}

type contactRef struct {
	ID        ContactID `json:"id"`
	ContactID ContactID `json:"contact_id"`
}

func decodeContactRef(data json.RawMessage) (ContactID, error) {
	var ref contactRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", err
	}
	if ref.ID != "" {
		return ref.ID, nil
	}
	return ref.ContactID, nil
}

// ContactDeletedEvent names the contact that was removed.
type ContactDeletedEvent struct {
	ID ContactID
}

func (e ContactDeletedEvent) MessageType() MessageType { return MessageContactDeleted }

// AnalyticsEvent carries aggregate figures recomputed by the server.
type AnalyticsEvent struct {
	Metrics map[string]any
}

func (e AnalyticsEvent) MessageType() MessageType { return MessageAnalyticsUpdated }

// NotificationEvent is an operator-facing message from the server.
type NotificationEvent struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (e NotificationEvent) MessageType() MessageType { return MessageSystemNotification }

// ParseEnvelope decodes a raw frame and its payload into an Event.
func ParseEnvelope(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return DecodeEvent(env)
}

// DecodeEvent turns an envelope into its typed variant.
func DecodeEvent(env Envelope) (Event, error) {
	switch env.Type {
	case MessageContactCreated, MessageContactUpdated, MessageContactApproved, MessageContactRejected:
		var c Contact
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
		}
		id, err := decodeContactRef(env.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: %s without contact id", ErrMalformedMessage, env.Type)
		}
		c.ID = id
		switch env.Type {
		case MessageContactApproved:
			c.Status = StatusApproved
		case MessageContactRejected:
			c.Status = StatusRejected
		}
		return ContactEvent{Kind: env.Type, Contact: c, Data: env.Data}, nil

	case MessageContactDeleted:
		id, err := decodeContactRef(env.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: %s without contact id", ErrMalformedMessage, env.Type)
		}
		return ContactDeletedEvent{ID: id}, nil

	case MessageAnalyticsUpdated:
		metrics := map[string]any{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &metrics); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
			}
		}
		return AnalyticsEvent{Metrics: metrics}, nil

	case MessageSystemNotification:
		var n NotificationEvent
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Type, err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
}

// NewEnvelope marshals data into an envelope of the given type.
func NewEnvelope(t MessageType, data any, timestamp string) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Data: raw, Timestamp: timestamp}, nil
}
