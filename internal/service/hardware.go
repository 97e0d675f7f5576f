package service

import "context"

// HardwareReader reads live data straight from the controller.
type HardwareReader interface {
	Status(ctx context.Context) map[string]any
	Settings(ctx context.Context) map[string]any
}

// HardwareService passes read queries through to the controller. There is
// no bus fallback for reads; nil means the controller did not answer.
type HardwareService struct {
	reader HardwareReader
}

func NewHardwareService(r HardwareReader) *HardwareService {
	return &HardwareService{reader: r}
}

func (s *HardwareService) HardwareStatus(ctx context.Context) map[string]any {
	return s.reader.Status(ctx)
}

func (s *HardwareService) HardwareSettings(ctx context.Context) map[string]any {
	return s.reader.Settings(ctx)
}
