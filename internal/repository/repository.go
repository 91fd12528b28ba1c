package repository

import (
	"context"
	"database/sql"
	"time"

	"petsync/internal/models"
	"petsync/internal/repository/db"
)

// InitDB opens the backing sqlite database and ensures the schema exists.
func InitDB(path string, connectTimeout time.Duration) (*sql.DB, error) {
	return db.InitDB(path, connectTimeout)
}

// ScheduleRepo is the durable schedule-entry collection, keyed by entry id.
type ScheduleRepo interface {
	// Upsert creates the entry or overwrites its fields if the id exists.
	Upsert(ctx context.Context, e models.ScheduleEntry) error
	// DeleteAbove removes every entry whose id, compared numerically,
	// exceeds maxID.
	DeleteAbove(ctx context.Context, maxID int) error
	// ListAll returns all entries in ascending numeric id order.
	ListAll(ctx context.Context) ([]models.ScheduleEntry, error)
}

type Repository struct {
	Schedule ScheduleRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Schedule: NewScheduleSQLite(db),
	}
}
