package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bms_bridge/internal/models"
)

// SnapshotSQLite is the append-only telemetry store backed by the bms_data table.
type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

var _ SnapshotRepo = (*SnapshotSQLite)(nil)

// Timestamps are stored as fixed-width UTC text so that range filters can
// compare them lexicographically.
const timestampLayout = "2006-01-02 15:04:05.000000000"

const (
	insertSnapshotSQL = `INSERT INTO bms_data (total_voltage, current, temperature, remaining_capacity, charge_fet_status, discharge_fet_status, cell_voltages, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectSnapshotColumns = `SELECT id, total_voltage, current, temperature, remaining_capacity, charge_fet_status, discharge_fet_status, cell_voltages, timestamp FROM bms_data`

	selectLatestSnapshotSQL = selectSnapshotColumns + ` ORDER BY timestamp DESC, id DESC LIMIT 1`
	selectBetweenSQL        = selectSnapshotColumns + ` WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC, id DESC`
	selectRecentSQL         = selectSnapshotColumns + ` ORDER BY timestamp DESC, id DESC LIMIT ?`
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func marshalCells(cells []float64) (string, error) {
	if cells == nil {
		cells = []float64{}
	}
	b, err := json.Marshal(cells)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalCells(s string) ([]float64, error) {
	if s == "" {
		return []float64{}, nil
	}
	var cells []float64
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// Append inserts a snapshot and returns its row id. A zero Timestamp is set to now.
func (r *SnapshotSQLite) Append(ctx context.Context, s models.Snapshot) (int64, error) {
	cells, err := marshalCells(s.CellVoltages)
	if err != nil {
		return 0, fmt.Errorf("marshal cell voltages: %w", err)
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	res, err := r.db.ExecContext(ctx, insertSnapshotSQL,
		s.TotalVoltage,
		s.Current,
		s.Temperature,
		s.RemainingCapacity,
		s.ChargeFetStatus.Bool(),
		s.DischargeFetStatus.Bool(),
		cells,
		formatTimestamp(ts),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot last insert id: %w", err)
	}
	return id, nil
}

// Latest returns the newest snapshot, or (nil, nil) when the table is empty.
func (r *SnapshotSQLite) Latest(ctx context.Context) (*models.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, selectLatestSnapshotSQL)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Between returns snapshots with from <= timestamp <= to, newest first.
func (r *SnapshotSQLite) Between(ctx context.Context, from, to time.Time) ([]models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectBetweenSQL, formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, fmt.Errorf("query snapshots between: %w", err)
	}
	return collectSnapshots(rows)
}

// Recent returns the newest limit snapshots, newest first.
func (r *SnapshotSQLite) Recent(ctx context.Context, limit int) ([]models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (models.Snapshot, error) {
	var (
		s                  models.Snapshot
		chargeFet, dsgFet  sql.NullBool
		cellsJSON, tsValue string
	)
	if err := row.Scan(
		&s.ID,
		&s.TotalVoltage,
		&s.Current,
		&s.Temperature,
		&s.RemainingCapacity,
		&chargeFet,
		&dsgFet,
		&cellsJSON,
		&tsValue,
	); err != nil {
		return models.Snapshot{}, err
	}

	cells, err := unmarshalCells(cellsJSON)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("snapshot %d cell voltages: %w", s.ID, err)
	}
	ts, err := parseTimestamp(tsValue)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("snapshot %d: %w", s.ID, err)
	}
	s.ChargeFetStatus = fetStateOf(chargeFet)
	s.DischargeFetStatus = fetStateOf(dsgFet)
	s.CellVoltages = cells
	s.Timestamp = ts
	return s, nil
}

// FET columns hold 1 (on), 0 (off) or NULL (unknown).
func fetStateOf(v sql.NullBool) models.FetState {
	if !v.Valid {
		return models.FetUnknown
	}
	return models.FetStateOf(&v.Bool)
}

func collectSnapshots(rows *sql.Rows) ([]models.Snapshot, error) {
	defer rows.Close()

	out := make([]models.Snapshot, 0, 64)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
