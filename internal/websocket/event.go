package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
)

type EntityType string

const EntityTypeProfile EntityType = "profile"

// Event is the frame pushed to subscribers, e.g.
// {"id":"…","type":"profile.updated","entity":"profile","payload":{…},"timestamp":"…"}
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEvent(eventType EventType, entity EntityType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      string(entity) + "." + string(eventType),
		Entity:    entity,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ProfileCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeProfile, payload)
}

func ProfileUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeProfile, payload)
}
