package repository

import (
	"context"
	"database/sql"

	"petsync/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

const (
	upsertEntrySQL = `
		INSERT INTO schedule_entries (id, time, auto_refill_linked, peso, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time=excluded.time,
			auto_refill_linked=excluded.auto_refill_linked,
			peso=excluded.peso,
			enabled=excluded.enabled
	`

	// Entry ids are stored as TEXT for wire compatibility but compared
	// numerically, so "10" sorts after "9".
	deleteAboveSQL = `DELETE FROM schedule_entries WHERE CAST(id AS INTEGER) > ?`

	listEntriesSQL = `
		SELECT id, time, auto_refill_linked, peso, enabled
		FROM schedule_entries
		ORDER BY CAST(id AS INTEGER) ASC
	`
)

// Upsert inserts the entry or overwrites the row with the same id.
func (r *ScheduleSQLite) Upsert(ctx context.Context, e models.ScheduleEntry) error {
	_, err := r.db.ExecContext(ctx, upsertEntrySQL,
		e.ID,
		e.Time,
		e.AutoRefillLinked,
		e.Peso,
		e.Enabled,
	)
	return err
}

// DeleteAbove prunes stale slots left over from a previously longer schedule.
func (r *ScheduleSQLite) DeleteAbove(ctx context.Context, maxID int) error {
	_, err := r.db.ExecContext(ctx, deleteAboveSQL, maxID)
	return err
}

// ListAll returns every stored entry in ascending numeric id order.
func (r *ScheduleSQLite) ListAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		var peso sql.NullString
		if err := rows.Scan(&e.ID, &e.Time, &e.AutoRefillLinked, &peso, &e.Enabled); err != nil {
			return nil, err
		}
		e.Peso = peso.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
