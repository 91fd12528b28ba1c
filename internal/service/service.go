package service

import (
	"context"
	"time"

	"petsync/internal/feeder"
	"petsync/internal/logger"
	"petsync/internal/models"
	"petsync/internal/repository"
)

// Sync is the single mutation pipeline: every feeder-state change from either
// transport goes through it, serialized, and each applied change is broadcast
// before the call returns.
type Sync interface {
	SetLevel(ctx context.Context, value any) (models.FeederSnapshot, error)
	SetGrams(ctx context.Context, grams int) (models.FeederSnapshot, error)
	SetGramsDirect(ctx context.Context, grams int) (models.FeederSnapshot, error)
	SetAutoRefill(ctx context.Context, enabled bool) (models.FeederSnapshot, error)
	FillBowl(ctx context.Context) (models.FeederSnapshot, error)
	Dispense(ctx context.Context, amount *int) (models.FeederSnapshot, error)
	Snapshot(ctx context.Context) models.FeederSnapshot
	ConnectSnapshot(ctx context.Context) models.ConnectSnapshot
	// HandleMessage applies a raw push-channel message. Errors are never
	// surfaced back over the channel.
	HandleMessage(ctx context.Context, raw []byte)
}

// Schedule exposes the schedule collection: full-set replacement saves and
// ascending-by-id reads.
type Schedule interface {
	Save(ctx context.Context, entries []models.ScheduleEntry) ([]models.ScheduleEntry, error)
	List(ctx context.Context) ([]models.ScheduleEntry, error)
}

// Broadcaster fans state snapshots and discrete events out to live sessions.
// Delivery is best-effort; implementations must never report failure back.
type Broadcaster interface {
	BroadcastState(snap models.FeederSnapshot)
	BroadcastEvent(ev models.Event)
}

// Options tunes the sync core. Zero values fall back to defaults.
type Options struct {
	DefaultDoseGrams int           // dispense amount when the caller omits one
	StoreTimeout     time.Duration // bound on each schedule-store operation
	StrictPush       bool          // drop whole malformed push messages instead of ignoring per-field
}

const (
	defaultDoseGrams    = 40
	defaultStoreTimeout = 45 * time.Second
)

type Service struct {
	Sync
	Schedule
}

// NewService wires the repository layer, feeder state and broadcaster into
// the sync core. Sync and Schedule share one implementation so that all
// mutations are serialized behind a single mutex.
func NewService(repos *repository.Repository, state *feeder.State, bc Broadcaster, log *logger.Logger, opts Options) *Service {
	ss := NewSyncService(repos.Schedule, state, bc, log, opts)
	return &Service{
		Sync:     ss,
		Schedule: ss,
	}
}
