package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"petsync/internal/feeder"
	"petsync/internal/logger"
	"petsync/internal/models"
)

// fakeScheduleRepo is an in-memory ScheduleRepo with injectable failures.
type fakeScheduleRepo struct {
	mu      sync.Mutex
	entries map[string]models.ScheduleEntry

	upsertErr error
	deleteErr error
	listErr   error

	deleteAboveCalls []int
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{entries: make(map[string]models.ScheduleEntry)}
}

func (f *fakeScheduleRepo) Upsert(ctx context.Context, e models.ScheduleEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = e
	return nil
}

func (f *fakeScheduleRepo) DeleteAbove(ctx context.Context, maxID int) error {
	f.mu.Lock()
	f.deleteAboveCalls = append(f.deleteAboveCalls, maxID)
	f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.entries {
		if n, err := strconv.Atoi(id); err == nil && n > maxID {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeScheduleRepo) ListAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ScheduleEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out, nil
}

// captureBroadcaster records every fan-out call.
type captureBroadcaster struct {
	mu     sync.Mutex
	states []models.FeederSnapshot
	events []models.Event
}

func (b *captureBroadcaster) BroadcastState(s models.FeederSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, s)
}

func (b *captureBroadcaster) BroadcastEvent(e models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *captureBroadcaster) lastState(t *testing.T) models.FeederSnapshot {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		t.Fatalf("expected at least one state broadcast")
	}
	return b.states[len(b.states)-1]
}

func (b *captureBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestSync(grams int) (*SyncService, *fakeScheduleRepo, *captureBroadcaster) {
	return newTestSyncOpts(grams, Options{})
}

func newTestSyncOpts(grams int, opts Options) (*SyncService, *fakeScheduleRepo, *captureBroadcaster) {
	repo := newFakeScheduleRepo()
	bc := &captureBroadcaster{}
	svc := NewSyncService(repo, feeder.NewState(grams), bc, logger.Get(logger.ErrorLevel), opts)
	return svc, repo, bc
}

func TestSetGrams_BroadcastsSnapshot(t *testing.T) {
	svc, _, bc := newTestSync(0)
	snap, err := svc.SetGrams(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Grams != 100 || snap.Level != 50 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := bc.lastState(t); got != snap {
		t.Fatalf("broadcast state %+v differs from returned %+v", got, snap)
	}
}

func TestSetGrams_OutOfRangeDoesNotBroadcast(t *testing.T) {
	svc, _, bc := newTestSync(0)
	if _, err := svc.SetGrams(context.Background(), 500); err == nil {
		t.Fatalf("expected error")
	}
	if len(bc.states) != 0 {
		t.Fatalf("failed mutation must not broadcast, got %d frames", len(bc.states))
	}
}

func TestSetLevel_ParsingPaths(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{"gram_string", "20 gramas", 20},
		{"bare_percentage", float64(50), 100},
		{"bare_grams", float64(150), 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestSync(0)
			snap, err := svc.SetLevel(context.Background(), tc.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.Grams != tc.want {
				t.Fatalf("got %d grams, want %d", snap.Grams, tc.want)
			}
		})
	}
}

func TestSetLevel_UnparseableResolvesToZero(t *testing.T) {
	svc, _, _ := newTestSync(120)
	snap, err := svc.SetLevel(context.Background(), "full bowl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Grams != 0 {
		t.Fatalf("expected fail-soft 0 grams, got %d", snap.Grams)
	}
}

func TestSetGramsDirect_BypassesThresholdRule(t *testing.T) {
	// 75 would be a percentage on the ambiguous path; the direct channel
	// must take it as grams verbatim.
	svc, _, bc := newTestSync(0)
	snap, err := svc.SetGramsDirect(context.Background(), 75)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Grams != 75 {
		t.Fatalf("expected exactly 75 grams, got %d", snap.Grams)
	}
	types := bc.eventTypes()
	if len(types) != 1 || types[0] != models.EventGramasUpdate {
		t.Fatalf("expected one gramasUpdate event, got %v", types)
	}
	if got := bc.events[0].Payload["gramas"]; got != 75 {
		t.Fatalf("expected gramas=75 in payload, got %v", got)
	}
}

func TestFillBowl_SetsFullAndEmitsEvent(t *testing.T) {
	svc, _, bc := newTestSync(30)
	snap, err := svc.FillBowl(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Grams != feeder.MaxGrams {
		t.Fatalf("expected %d grams, got %d", feeder.MaxGrams, snap.Grams)
	}
	types := bc.eventTypes()
	if len(types) != 1 || types[0] != models.EventFillBowl {
		t.Fatalf("expected one fillBowl event, got %v", types)
	}
}

func TestDispense_DefaultDoseSaturates(t *testing.T) {
	svc, _, bc := newTestSync(180)
	snap, err := svc.Dispense(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Grams != feeder.MaxGrams {
		t.Fatalf("expected saturation at %d, got %d", feeder.MaxGrams, snap.Grams)
	}
	types := bc.eventTypes()
	if len(types) != 1 || types[0] != models.EventDispenseFood {
		t.Fatalf("expected one dispenseFood event, got %v", types)
	}
	if got := bc.events[0].Payload["amount"]; got != 40 {
		t.Fatalf("expected default dose 40 in payload, got %v", got)
	}
}

func TestDispense_ConcurrentCallsBothApply(t *testing.T) {
	svc, _, _ := newTestSync(0)
	amount := 40

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Dispense(context.Background(), &amount); err != nil {
				t.Errorf("dispense failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if snap := svc.Snapshot(context.Background()); snap.Grams != 80 {
		t.Fatalf("lost update: expected 80 grams, got %d", snap.Grams)
	}
}

func TestConnectSnapshot_ReflectsStateAndSchedule(t *testing.T) {
	svc, repo, _ := newTestSync(50)
	repo.entries["1"] = models.ScheduleEntry{ID: "1", Time: "08:00", Enabled: true}

	snap := svc.ConnectSnapshot(context.Background())
	if snap.Grams != 50 || snap.Level != 25 {
		t.Fatalf("unexpected feeder state: %+v", snap.FeederSnapshot)
	}
	if len(snap.Schedule) != 1 || snap.Schedule[0].ID != "1" {
		t.Fatalf("unexpected schedule: %+v", snap.Schedule)
	}
	if len(snap.Agendamentos) != 1 || snap.Agendamentos[0].Hora != "08:00" {
		t.Fatalf("unexpected legacy schedule: %+v", snap.Agendamentos)
	}
}

func TestConnectSnapshot_StoreFailureDegradesToEmptySchedule(t *testing.T) {
	svc, repo, _ := newTestSync(50)
	repo.listErr = fmt.Errorf("disk gone")

	snap := svc.ConnectSnapshot(context.Background())
	if snap.Grams != 50 {
		t.Fatalf("feeder state must still be served: %+v", snap)
	}
	if len(snap.Schedule) != 0 {
		t.Fatalf("expected empty schedule on store failure, got %+v", snap.Schedule)
	}
}
