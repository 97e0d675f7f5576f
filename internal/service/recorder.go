package service

import (
	"context"
	"fmt"
	"time"

	"bms_bridge/internal/broadcast"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
	"bms_bridge/internal/models"
	"bms_bridge/internal/repository"
)

// Broadcaster fans an event out to live subscribers.
type Broadcaster interface {
	Publish(channel string, v any)
}

// TelemetryRecorder persists status readings and rebroadcasts them.
type TelemetryRecorder struct {
	repo  repository.SnapshotRepo
	hub   Broadcaster
	clock func() time.Time
	log   *logger.Logger
}

func NewTelemetryRecorder(repo repository.SnapshotRepo, hub Broadcaster, log *logger.Logger) *TelemetryRecorder {
	return &TelemetryRecorder{repo: repo, hub: hub, clock: time.Now, log: log.Named("recorder")}
}

// Record stamps st with the ingestion time, appends it to the store and
// broadcasts the decoded payload. The broadcast happens even when the write fails.
func (r *TelemetryRecorder) Record(ctx context.Context, st models.BmsStatus) (models.Snapshot, error) {
	snap := models.NewSnapshot(st, r.clock())

	id, err := r.repo.Append(ctx, snap)
	if err != nil {
		metrics.SnapshotPersistFailures.Inc()
		r.log.Errorw("snapshot_persist_failed", "err", err)
	} else {
		snap.ID = id
		metrics.SnapshotsPersisted.Inc()
	}

	r.hub.Publish(broadcast.ChannelStatus, st)

	if err != nil {
		return snap, fmt.Errorf("record status: %w", err)
	}
	r.log.Debugw("status_recorded", "id", id, "cells", len(snap.CellVoltages))
	return snap, nil
}
