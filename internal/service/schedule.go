package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"petsync/internal/models"
)

// Same pattern the legacy store enforced: hours 00-29 pass, minutes are
// strict. Kept bug-for-bug since the deployed client was built against it.
var timePattern = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)

// Save replaces the stored schedule with the incoming set.
//
// Entry ids are positional (1..N), so a shorter incoming set must reclaim the
// higher slots of a previously longer one: every stored id above the incoming
// maximum is deleted before the incoming entries are upserted. Validation is
// all-or-nothing; a single bad entry rejects the whole batch untouched.
func (s *SyncService) Save(ctx context.Context, entries []models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	maxID, err := validateBatch(entries)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.schedule.DeleteAbove(sctx, maxID); err != nil {
		return nil, storeErr("delete stale entries", err)
	}
	for _, e := range entries {
		if err := s.schedule.Upsert(sctx, e); err != nil {
			return nil, storeErr("upsert entry "+e.ID, err)
		}
	}

	stored, err := s.listLocked(ctx)
	if err != nil {
		return nil, err
	}

	s.bc.BroadcastEvent(models.NewEvent(models.EventAgendaUpdated, map[string]any{
		"schedule":     stored,
		"agendamentos": models.ToLegacySlice(stored),
	}))
	return stored, nil
}

// List returns the stored schedule in ascending id order.
func (s *SyncService) List(ctx context.Context) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *SyncService) listLocked(ctx context.Context) ([]models.ScheduleEntry, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	entries, err := s.schedule.ListAll(sctx)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	return entries, nil
}

// validateBatch checks every entry and returns the numeric maximum of the
// incoming ids.
func validateBatch(entries []models.ScheduleEntry) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidSchedule)
	}
	maxID := 0
	for i, e := range entries {
		id, err := strconv.Atoi(e.ID)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: entry %d has bad id %q", ErrInvalidSchedule, i, e.ID)
		}
		if !timePattern.MatchString(e.Time) {
			return 0, fmt.Errorf("%w: entry %q has bad time %q", ErrInvalidSchedule, e.ID, e.Time)
		}
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}
