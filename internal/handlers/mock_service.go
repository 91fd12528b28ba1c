package handlers

import (
	"context"
	"sync"

	"petsync/internal/models"
)

// ---- Service Mocks ----

type mockSync struct {
	snap        models.FeederSnapshot
	connectSnap models.ConnectSnapshot
	err         error

	lastLevel       any
	lastGrams       int
	lastAutoRefill  bool
	dispenseAmounts []*int
	fillCalls       int

	mu       sync.Mutex
	messages [][]byte
}

func (m *mockSync) SetLevel(ctx context.Context, value any) (models.FeederSnapshot, error) {
	m.lastLevel = value
	return m.snap, m.err
}

func (m *mockSync) SetGrams(ctx context.Context, grams int) (models.FeederSnapshot, error) {
	m.lastGrams = grams
	return m.snap, m.err
}

func (m *mockSync) SetGramsDirect(ctx context.Context, grams int) (models.FeederSnapshot, error) {
	m.lastGrams = grams
	return m.snap, m.err
}

func (m *mockSync) SetAutoRefill(ctx context.Context, enabled bool) (models.FeederSnapshot, error) {
	m.lastAutoRefill = enabled
	return m.snap, m.err
}

func (m *mockSync) FillBowl(ctx context.Context) (models.FeederSnapshot, error) {
	m.fillCalls++
	return m.snap, m.err
}

func (m *mockSync) Dispense(ctx context.Context, amount *int) (models.FeederSnapshot, error) {
	m.dispenseAmounts = append(m.dispenseAmounts, amount)
	return m.snap, m.err
}

func (m *mockSync) Snapshot(ctx context.Context) models.FeederSnapshot {
	return m.snap
}

func (m *mockSync) ConnectSnapshot(ctx context.Context) models.ConnectSnapshot {
	return m.connectSnap
}

// HandleMessage records inbound frames; sessions call it from their read
// pumps, so access is guarded.
func (m *mockSync) HandleMessage(ctx context.Context, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, append([]byte(nil), raw...))
}

func (m *mockSync) recorded() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.messages...)
}

type mockSchedule struct {
	entries   []models.ScheduleEntry
	saveErr   error
	listErr   error
	lastSaved []models.ScheduleEntry
}

func (m *mockSchedule) Save(ctx context.Context, entries []models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	m.lastSaved = entries
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return entries, nil
}

func (m *mockSchedule) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	return m.entries, m.listErr
}
