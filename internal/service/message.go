package service

import (
	"context"
	"encoding/json"
	"math"

	"petsync/internal/models"
)

// pushMessage is the client->server frame. A single message may carry several
// recognized fields at once; each one is applied independently, in the fixed
// order below. Fields stay raw here so one undecodable field cannot poison
// the rest of the frame. Unknown fields are ignored for protocol-skew
// tolerance.
type pushMessage struct {
	Level        json.RawMessage `json:"level"`
	Grams        json.RawMessage `json:"grams"`
	Gramas       json.RawMessage `json:"gramas"` // direct-bypass gram channel
	AutoRefill   json.RawMessage `json:"autoRefill"`
	Action       json.RawMessage `json:"action"` // "dispenseFood" | "fillBowl"
	Amount       json.RawMessage `json:"amount"`
	Schedule     json.RawMessage `json:"schedule"`
	Agendamentos json.RawMessage `json:"agendamentos"`
}

// pushAction holds the typed view of a frame after per-field decoding.
type pushAction struct {
	level        any
	grams        *float64
	gramas       *float64
	autoRefill   *bool
	action       string
	amount       *float64
	schedule     []models.ScheduleEntry
	hasSchedule  bool
	agendamentos []models.LegacyScheduleEntry
	hasLegacy    bool
}

// decode fills the typed fields and reports the names of fields whose raw
// JSON did not fit the expected type.
func (a *pushAction) decode(msg pushMessage) (bad []string) {
	field := func(name string, raw json.RawMessage, dst any) bool {
		if len(raw) == 0 {
			return false
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			bad = append(bad, name)
			return false
		}
		return true
	}
	field("level", msg.Level, &a.level)
	field("grams", msg.Grams, &a.grams)
	field("gramas", msg.Gramas, &a.gramas)
	field("autoRefill", msg.AutoRefill, &a.autoRefill)
	field("action", msg.Action, &a.action)
	field("amount", msg.Amount, &a.amount)
	a.hasSchedule = field("schedule", msg.Schedule, &a.schedule)
	a.hasLegacy = field("agendamentos", msg.Agendamentos, &a.agendamentos)
	return bad
}

const (
	actionDispenseFood = "dispenseFood"
	actionFillBowl     = "fillBowl"
)

// HandleMessage applies one raw push-channel frame. Failures never travel
// back over the channel. By default each undecodable or rejected field is
// dropped and the remaining fields still apply; in strict mode a frame with
// any undecodable field is dropped whole. Either way the session only ever
// sees state/event frames.
func (s *SyncService) HandleMessage(ctx context.Context, raw []byte) {
	var msg pushMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Warnw("push_message_unreadable", "err", err)
		return
	}

	var act pushAction
	if bad := act.decode(msg); len(bad) > 0 {
		if s.strictPush {
			s.log.Warnw("push_message_rejected", "fields", bad)
			return
		}
		s.log.Warnw("push_fields_undecodable", "fields", bad)
	}

	if act.level != nil {
		if _, err := s.SetLevel(ctx, act.level); err != nil {
			s.dropField("level", err)
		}
	}
	if act.grams != nil {
		if _, err := s.SetGrams(ctx, roundToInt(*act.grams)); err != nil {
			s.dropField("grams", err)
		}
	}
	if act.gramas != nil {
		if _, err := s.SetGramsDirect(ctx, roundToInt(*act.gramas)); err != nil {
			s.dropField("gramas", err)
		}
	}
	if act.autoRefill != nil {
		if _, err := s.SetAutoRefill(ctx, *act.autoRefill); err != nil {
			s.dropField("autoRefill", err)
		}
	}

	switch act.action {
	case actionDispenseFood:
		var amount *int
		if act.amount != nil {
			v := roundToInt(*act.amount)
			amount = &v
		}
		if _, err := s.Dispense(ctx, amount); err != nil {
			s.dropField("action.dispenseFood", err)
		}
	case actionFillBowl:
		if _, err := s.FillBowl(ctx); err != nil {
			s.dropField("action.fillBowl", err)
		}
	case "":
	default:
		// Unknown action: tolerated for forward/backward protocol skew.
		s.log.Debugw("push_action_unknown", "action", act.action)
	}

	entries := act.schedule
	if !act.hasSchedule && act.hasLegacy {
		entries = make([]models.ScheduleEntry, 0, len(act.agendamentos))
		for _, le := range act.agendamentos {
			entries = append(entries, models.FromLegacy(le))
		}
	}
	if act.hasSchedule || act.hasLegacy {
		if _, err := s.Save(ctx, entries); err != nil {
			s.dropField("schedule", err)
		}
	}
}

func (s *SyncService) dropField(field string, err error) {
	s.log.Warnw("push_field_dropped", "field", field, "err", err)
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}
