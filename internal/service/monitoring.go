package service

import (
	"context"
	"errors"
	"time"

	"bms_bridge/internal/models"
	"bms_bridge/internal/repository"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 1000
)

var (
	ErrNoTelemetry      = errors.New("no telemetry recorded yet")
	ErrInvalidTimeRange = errors.New("start must not be after end")
)

// MonitoringService serves stored telemetry.
type MonitoringService struct {
	snapshots repository.SnapshotRepo
}

func NewMonitoringService(snapshots repository.SnapshotRepo) *MonitoringService {
	return &MonitoringService{snapshots: snapshots}
}

// LatestStatus returns the newest reading in payload shape, or ErrNoTelemetry.
func (s *MonitoringService) LatestStatus(ctx context.Context) (models.BmsStatus, error) {
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		return models.BmsStatus{}, err
	}
	if snap == nil {
		return models.BmsStatus{}, ErrNoTelemetry
	}
	return snap.Status(), nil
}

// History returns readings with from <= timestamp <= to, newest first.
func (s *MonitoringService) History(ctx context.Context, from, to time.Time) ([]models.Snapshot, error) {
	if from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.snapshots.Between(ctx, toUTC(from), toUTC(to))
}

// RecentReadings returns up to limit newest readings. Out of range limits are clamped.
func (s *MonitoringService) RecentReadings(ctx context.Context, limit int) ([]models.Snapshot, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	return s.snapshots.Recent(ctx, limit)
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
