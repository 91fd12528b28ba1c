package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"petsync/internal/feeder"
	"petsync/internal/logger"
	"petsync/internal/models"
	"petsync/internal/repository"
)

// SyncService is the authoritative mutation pipeline. One mutex serializes
// every dispatch from concurrent HTTP callers and live sessions, so two
// concurrent dispenses are both reflected and broadcast snapshots always
// observe a consistent post-mutation state.
type SyncService struct {
	mu       sync.Mutex
	state    *feeder.State
	schedule repository.ScheduleRepo
	bc       Broadcaster
	log      *logger.Logger

	defaultDose  int
	storeTimeout time.Duration
	strictPush   bool
}

func NewSyncService(schedule repository.ScheduleRepo, state *feeder.State, bc Broadcaster, log *logger.Logger, opts Options) *SyncService {
	if opts.DefaultDoseGrams <= 0 {
		opts.DefaultDoseGrams = defaultDoseGrams
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	return &SyncService{
		state:        state,
		schedule:     schedule,
		bc:           bc,
		log:          log,
		defaultDose:  opts.DefaultDoseGrams,
		storeTimeout: opts.StoreTimeout,
		strictPush:   opts.StrictPush,
	}
}

// SetLevel resolves the inbound value per the unit-ambiguity rules and
// replaces the fill quantity.
func (s *SyncService) SetLevel(ctx context.Context, value any) (models.FeederSnapshot, error) {
	return s.SetGrams(ctx, feeder.ParseLevel(value))
}

// SetGrams replaces the fill quantity with an exact gram count.
func (s *SyncService) SetGrams(ctx context.Context, grams int) (models.FeederSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.state.SetGrams(grams)
	if err != nil {
		return models.FeederSnapshot{}, err
	}
	s.bc.BroadcastState(snap)
	return snap, nil
}

// SetGramsDirect is the trusted gram channel: no unit inference, and the
// applied value is additionally announced as a gramasUpdate event.
func (s *SyncService) SetGramsDirect(ctx context.Context, grams int) (models.FeederSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.state.SetGrams(grams)
	if err != nil {
		return models.FeederSnapshot{}, err
	}
	s.bc.BroadcastState(snap)
	s.bc.BroadcastEvent(models.NewEvent(models.EventGramasUpdate, map[string]any{
		"gramas": snap.Grams,
	}))
	return snap, nil
}

// SetAutoRefill replaces the auto-refill flag.
func (s *SyncService) SetAutoRefill(ctx context.Context, enabled bool) (models.FeederSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.SetAutoRefill(enabled)
	s.bc.BroadcastState(snap)
	return snap, nil
}

// FillBowl sets the bowl to full capacity.
func (s *SyncService) FillBowl(ctx context.Context) (models.FeederSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.Fill()
	s.bc.BroadcastState(snap)
	s.bc.BroadcastEvent(models.NewEvent(models.EventFillBowl, map[string]any{
		"grams": snap.Grams,
	}))
	return snap, nil
}

// Dispense adds food to the bowl, saturating at capacity. A nil amount uses
// the configured default dose. Not idempotent: two dispenses both apply.
func (s *SyncService) Dispense(ctx context.Context, amount *int) (models.FeederSnapshot, error) {
	dose := s.defaultDose
	if amount != nil {
		dose = *amount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.AddGrams(dose)
	s.bc.BroadcastState(snap)
	s.bc.BroadcastEvent(models.NewEvent(models.EventDispenseFood, map[string]any{
		"amount": dose,
		"grams":  snap.Grams,
	}))
	return snap, nil
}

// Snapshot returns the current feeder state.
func (s *SyncService) Snapshot(ctx context.Context) models.FeederSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// ConnectSnapshot is the frame sent to a newly opened session: feeder state
// plus the full schedule set. A store failure degrades to an empty schedule
// rather than blocking the connect.
func (s *SyncService) ConnectSnapshot(ctx context.Context) models.ConnectSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.listLocked(ctx)
	if err != nil {
		s.log.Errorw("connect_snapshot_schedule_failed", "err", err)
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	return models.ConnectSnapshot{
		FeederSnapshot: s.state.Snapshot(),
		Schedule:       entries,
		Agendamentos:   models.ToLegacySlice(entries),
	}
}

func (s *SyncService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
