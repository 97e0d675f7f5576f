package repository

import (
	"context"
	"database/sql"
	"time"

	"bms_bridge/internal/models"
)

// SnapshotRepo stores telemetry snapshots. Snapshots are never updated or deleted.
type SnapshotRepo interface {
	Append(ctx context.Context, s models.Snapshot) (int64, error)
	Latest(ctx context.Context) (*models.Snapshot, error)
	Between(ctx context.Context, from, to time.Time) ([]models.Snapshot, error)
	Recent(ctx context.Context, limit int) ([]models.Snapshot, error)
}

// OperatorRepo stores operator accounts for the control API.
type OperatorRepo interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

type Repository struct {
	Snapshots SnapshotRepo
	Operators OperatorRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Snapshots: NewSnapshotSQLite(db),
		Operators: NewOperatorRepository(db),
	}
}
