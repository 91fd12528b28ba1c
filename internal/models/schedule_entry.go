package models

// ScheduleEntry is one scheduled feed-trigger slot.
//
// IDs are positional ("1".."N" in submission order), not stable identities:
// saving a shorter schedule reclaims the higher IDs of the previous one.
type ScheduleEntry struct {
	ID               string `json:"id"`
	Time             string `json:"time"` // HH:MM, 24-hour
	AutoRefillLinked bool   `json:"autoRefillLinked"`
	Peso             string `json:"peso,omitempty"` // free-text portion weight, e.g. "20 gramas"
	Enabled          bool   `json:"enabled"`
}

// LegacyScheduleEntry is the wire shape the original client speaks
// (Portuguese field names). Kept for the /api/* routes and the
// "agendamentos" websocket payload.
type LegacyScheduleEntry struct {
	ID            string `json:"id"`
	Hora          string `json:"hora"`
	HasAutomatico bool   `json:"hasAutomatico"`
	Peso          string `json:"peso,omitempty"`
	Enabled       bool   `json:"enabled"`
}

// FromLegacy converts a legacy wire entry to the canonical form.
func FromLegacy(e LegacyScheduleEntry) ScheduleEntry {
	return ScheduleEntry{
		ID:               e.ID,
		Time:             e.Hora,
		AutoRefillLinked: e.HasAutomatico,
		Peso:             e.Peso,
		Enabled:          e.Enabled,
	}
}

// ToLegacy converts a canonical entry to the legacy wire form.
func ToLegacy(e ScheduleEntry) LegacyScheduleEntry {
	return LegacyScheduleEntry{
		ID:            e.ID,
		Hora:          e.Time,
		HasAutomatico: e.AutoRefillLinked,
		Peso:          e.Peso,
		Enabled:       e.Enabled,
	}
}

// ToLegacySlice maps a whole schedule set to the legacy wire form.
func ToLegacySlice(entries []ScheduleEntry) []LegacyScheduleEntry {
	out := make([]LegacyScheduleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToLegacy(e))
	}
	return out
}
