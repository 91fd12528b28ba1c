package feeder

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"petsync/internal/models"
)

// MaxGrams is the bowl capacity. Level percentages are derived against it.
const MaxGrams = 200

// ErrOutOfRange is returned when a requested gram value falls outside
// [0, MaxGrams].
var ErrOutOfRange = errors.New("grams out of range")

// State is the process-wide feeder state: current fill quantity and the
// auto-refill flag. Grams is authoritative; the percentage is recomputed on
// every snapshot and never stored.
//
// All methods are safe for concurrent use, but callers that need compound
// mutation+broadcast ordering must serialize at a higher level.
type State struct {
	mu         sync.Mutex
	grams      int
	autoRefill bool
}

// NewState returns feeder state initialized to the given gram count,
// clamped into range.
func NewState(grams int) *State {
	return &State{grams: clamp(grams)}
}

// SetGrams replaces the fill quantity. Fails if value is outside
// [0, MaxGrams]; nothing is mutated on failure.
func (s *State) SetGrams(value int) (models.FeederSnapshot, error) {
	if value < 0 || value > MaxGrams {
		return models.FeederSnapshot{}, fmt.Errorf("set grams to %d: %w", value, ErrOutOfRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grams = value
	return s.snapshotLocked(), nil
}

// AddGrams adjusts the fill quantity by delta, saturating at the range
// bounds. Never errors; used for incremental dispense actions.
func (s *State) AddGrams(delta int) models.FeederSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grams = clamp(s.grams + delta)
	return s.snapshotLocked()
}

// SetAutoRefill replaces the auto-refill flag.
func (s *State) SetAutoRefill(enabled bool) models.FeederSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRefill = enabled
	return s.snapshotLocked()
}

// Fill sets the quantity to full capacity.
func (s *State) Fill() models.FeederSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grams = MaxGrams
	return s.snapshotLocked()
}

// Snapshot returns the current state with the derived percentage.
func (s *State) Snapshot() models.FeederSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() models.FeederSnapshot {
	return models.FeederSnapshot{
		Grams:      s.grams,
		Level:      Percentage(s.grams),
		AutoRefill: s.autoRefill,
	}
}

// Percentage derives the display level from a gram count.
func Percentage(grams int) int {
	return int(math.Round(float64(grams) / MaxGrams * 100))
}

func clamp(grams int) int {
	if grams < 0 {
		return 0
	}
	if grams > MaxGrams {
		return MaxGrams
	}
	return grams
}
