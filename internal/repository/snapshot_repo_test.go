package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"bms_bridge/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func f64(v float64) *float64 { return &v }

var snapshotColumns = []string{
	"id", "total_voltage", "current", "temperature", "remaining_capacity",
	"charge_fet_status", "discharge_fet_status", "cell_voltages", "timestamp",
}

func newSnapshotMock(t *testing.T) (*SnapshotSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewSnapshotSQLite(db), mock
}

func TestSnapshotAppend_Success(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	ts := time.Date(2025, 8, 13, 6, 27, 1, 10_000_000, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(insertSnapshotSQL)).
		WithArgs(12.6, nil, 25.5, 80.0, true, nil,
			"[3.1,3.2,3.3]", "2025-08-13 06:27:01.010000000").
		WillReturnResult(sqlmock.NewResult(9, 1))

	id, err := repo.Append(ctx(t), models.Snapshot{
		TotalVoltage:      f64(12.6),
		Temperature:       f64(25.5),
		RemainingCapacity: f64(80),
		ChargeFetStatus:   models.FetOn,
		CellVoltages:      []float64{3.1, 3.2, 3.3},
		Timestamp:         ts,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id != 9 {
		t.Fatalf("want id 9, got %d", id)
	}
}

func TestSnapshotAppend_NilCellsStoredAsEmptyArray(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertSnapshotSQL)).
		WithArgs(nil, nil, nil, nil, nil, nil, "[]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if _, err := repo.Append(ctx(t), models.Snapshot{}); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestSnapshotAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	mock.ExpectExec("INSERT INTO bms_data").WillReturnError(errors.New("disk full"))

	_, err := repo.Append(ctx(t), models.Snapshot{Timestamp: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSnapshotLatest(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	rows := sqlmock.NewRows(snapshotColumns).
		AddRow(3, 12.4, -1.5, 30.0, nil, false, true, "[3.3,3.1]", "2025-01-01 10:00:00.000000000")
	mock.ExpectQuery(regexp.QuoteMeta(selectLatestSnapshotSQL)).WillReturnRows(rows)

	got, err := repo.Latest(ctx(t))
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got == nil || got.ID != 3 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.Current == nil || *got.Current != -1.5 {
		t.Fatalf("current not scanned: %+v", got.Current)
	}
	if got.RemainingCapacity != nil {
		t.Fatalf("expected nil remaining capacity, got %v", *got.RemainingCapacity)
	}
	if got.ChargeFetStatus != models.FetOff || got.DischargeFetStatus != models.FetOn {
		t.Fatalf("fet states: %v %v", got.ChargeFetStatus, got.DischargeFetStatus)
	}
	if len(got.CellVoltages) != 2 || got.CellVoltages[0] != 3.3 || got.CellVoltages[1] != 3.1 {
		t.Fatalf("cell order lost: %v", got.CellVoltages)
	}
	if !got.Timestamp.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp: %v", got.Timestamp)
	}
}

func TestSnapshotLatest_FetColumns(t *testing.T) {
	cases := []struct {
		name   string
		stored any
		want   models.FetState
	}{
		{"null is unknown", nil, models.FetUnknown},
		{"one is on", int64(1), models.FetOn},
		{"zero is off", int64(0), models.FetOff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newSnapshotMock(t)
			rows := sqlmock.NewRows(snapshotColumns).
				AddRow(1, nil, nil, nil, nil, tc.stored, tc.stored, "[]", "2025-01-01 10:00:00.000000000")
			mock.ExpectQuery(regexp.QuoteMeta(selectLatestSnapshotSQL)).WillReturnRows(rows)

			got, err := repo.Latest(ctx(t))
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if got.ChargeFetStatus != tc.want || got.DischargeFetStatus != tc.want {
				t.Fatalf("fet states: %v %v, want %v", got.ChargeFetStatus, got.DischargeFetStatus, tc.want)
			}
		})
	}
}

func TestSnapshotLatest_Empty(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectLatestSnapshotSQL)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Latest(ctx(t))
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", got, err)
	}
}

func TestSnapshotBetween_ArgsAndOrder(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumns).
		AddRow(5, 12.0, 1.0, 25.0, 50.0, 1, 1, "[]", "2025-01-01 12:00:00.000000000").
		AddRow(4, 12.1, 1.0, 25.0, 51.0, 1, 1, "[]", "2025-01-01 11:00:00.000000000")
	mock.ExpectQuery(regexp.QuoteMeta(selectBetweenSQL)).
		WithArgs("2025-01-01 11:00:00.000000000", "2025-01-01 12:00:00.000000000").
		WillReturnRows(rows)

	got, err := repo.Between(ctx(t), from, to)
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestSnapshotRecent_ScanError(t *testing.T) {
	t.Parallel()
	repo, mock := newSnapshotMock(t)

	rows := sqlmock.NewRows(snapshotColumns).
		AddRow(1, 12.0, 1.0, 25.0, 50.0, 1, 1, "not json", "2025-01-01 12:00:00.000000000")
	mock.ExpectQuery(regexp.QuoteMeta(selectRecentSQL)).
		WithArgs(10).
		WillReturnRows(rows)

	if _, err := repo.Recent(ctx(t), 10); err == nil {
		t.Fatal("expected error for malformed cell voltages")
	}
}
