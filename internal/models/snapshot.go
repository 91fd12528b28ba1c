package models

import "time"

// FeederSnapshot is the canonical feeder state as sent to clients.
// Grams is the single source of truth; Level is always derived from it.
type FeederSnapshot struct {
	Grams      int  `json:"grams"`
	Level      int  `json:"level"` // percentage, round(grams/maxGrams*100)
	AutoRefill bool `json:"autoRefill"`
}

// ConnectSnapshot is the first frame a newly connected session receives:
// feeder state plus the full current schedule set. The schedule is carried
// under both the canonical and the legacy key.
type ConnectSnapshot struct {
	FeederSnapshot
	Schedule     []ScheduleEntry       `json:"schedule"`
	Agendamentos []LegacyScheduleEntry `json:"agendamentos"`
}

// Event type tags broadcast for discrete actions.
const (
	EventDispenseFood  = "dispenseFood"
	EventFillBowl      = "fillBowl"
	EventGramasUpdate  = "gramasUpdate"
	EventAgendaUpdated = "agendaUpdated"
)

// Event is a discrete broadcast frame. Payload fields are flattened next to
// "type" and "timestamp" when serialized for the wire.
type Event struct {
	Type      string
	Payload   map[string]any
	Timestamp time.Time
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(typ string, payload map[string]any) Event {
	return Event{Type: typ, Payload: payload, Timestamp: time.Now().UTC()}
}

// WireMap flattens the event into the map that gets marshaled onto the
// push channel: {"type": ..., <payload fields>..., "timestamp": ...}.
func (e Event) WireMap() map[string]any {
	m := make(map[string]any, len(e.Payload)+2)
	for k, v := range e.Payload {
		m[k] = v
	}
	m["type"] = e.Type
	m["timestamp"] = e.Timestamp
	return m
}
