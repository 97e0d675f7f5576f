package service

import (
	"context"

	"bms_bridge/internal/logger"
	"bms_bridge/internal/models"
)

// CommandDispatcher delivers a validated command to the hardware.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd models.Command) (Delivery, error)
}

// ControlService validates operator commands and hands them to the dispatcher.
// Commands that fail validation never leave the process.
type ControlService struct {
	dispatcher CommandDispatcher
	log        *logger.Logger
}

func NewControlService(d CommandDispatcher, log *logger.Logger) *ControlService {
	return &ControlService{dispatcher: d, log: log.Named("control")}
}

func (s *ControlService) SetThresholds(ctx context.Context, t models.ThresholdSet) (Delivery, error) {
	if t.Empty() {
		return Delivery{}, &ValidationError{Field: "thresholds", Reason: "at least one threshold must be given"}
	}
	if err := ValidateSettings(ProposalFromThresholds(t)); err != nil {
		s.log.Infow("thresholds_rejected", "err", err)
		return Delivery{}, err
	}
	return s.dispatcher.Dispatch(ctx, t)
}

func (s *ControlService) SetDelays(ctx context.Context, d models.DelaySet) (Delivery, error) {
	if d.Empty() {
		return Delivery{}, &ValidationError{Field: "delays", Reason: "at least one delay must be given"}
	}
	if err := ValidateSettings(ProposalFromDelays(d)); err != nil {
		s.log.Infow("delays_rejected", "err", err)
		return Delivery{}, err
	}
	return s.dispatcher.Dispatch(ctx, d)
}

func (s *ControlService) SwitchFETs(ctx context.Context, f models.FetControl) (Delivery, error) {
	if f.Empty() {
		return Delivery{}, &ValidationError{Field: "fet", Reason: "charge_fet_status or discharge_fet_status must be given"}
	}
	return s.dispatcher.Dispatch(ctx, f)
}

// ControlElectronicLoad fills in the default mode and level before sending.
func (s *ControlService) ControlElectronicLoad(ctx context.Context, l models.ElectronicLoadControl) (Delivery, error) {
	if l.LoadMode == "" {
		l.LoadMode = models.DefaultLoadMode
	}
	if l.CpModeLevel == 0 {
		l.CpModeLevel = models.DefaultCpModeLevel
	}
	if l.LoadMode != models.LoadModeCC && l.LoadMode != models.LoadModeCP {
		return Delivery{}, &ValidationError{Field: "loadMode", Reason: "loadMode must be CC or CP"}
	}
	if l.CpModeLevel < 0 {
		return Delivery{}, &ValidationError{Field: "cpModeLevel", Reason: "cpModeLevel must be positive"}
	}
	return s.dispatcher.Dispatch(ctx, l)
}

func (s *ControlService) ResetSettings(ctx context.Context) (Delivery, error) {
	return s.dispatcher.Dispatch(ctx, models.Reset{})
}
