package service

import (
	"context"
	"time"

	"bms_bridge/internal/config"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/models"
	"bms_bridge/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control validates and dispatches hardware commands.
type Control interface {
	SetThresholds(ctx context.Context, t models.ThresholdSet) (Delivery, error)
	SetDelays(ctx context.Context, d models.DelaySet) (Delivery, error)
	SwitchFETs(ctx context.Context, f models.FetControl) (Delivery, error)
	ControlElectronicLoad(ctx context.Context, l models.ElectronicLoadControl) (Delivery, error)
	ResetSettings(ctx context.Context) (Delivery, error)
}

// Monitoring exposes stored telemetry.
type Monitoring interface {
	LatestStatus(ctx context.Context) (models.BmsStatus, error)
	History(ctx context.Context, from, to time.Time) ([]models.Snapshot, error)
	RecentReadings(ctx context.Context, limit int) ([]models.Snapshot, error)
}

// Hardware exposes live reads from the controller.
type Hardware interface {
	HardwareStatus(ctx context.Context) map[string]any
	HardwareSettings(ctx context.Context) map[string]any
}

// Simulator publishes synthetic telemetry until ctx is canceled.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates the services used by the HTTP layer.
type Service struct {
	Control
	Monitoring
	Hardware
	Authorization
}

// Deps are the collaborators built in main.
type Deps struct {
	Repos      *repository.Repository
	Dispatcher CommandDispatcher
	Reader     HardwareReader
	Auth       config.AuthConfig
	Log        *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		Control:       NewControlService(d.Dispatcher, d.Log),
		Monitoring:    NewMonitoringService(d.Repos.Snapshots),
		Hardware:      NewHardwareService(d.Reader),
		Authorization: NewAuthService(d.Repos.Operators, d.Auth),
	}
}
