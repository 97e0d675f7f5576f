package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"bms_bridge/internal/logger"
	"bms_bridge/internal/models"
)

// ----------- Simulation constants -----------
const (
	AmbientC          = 25.0  // ambient temperature °C
	CapacityAh        = 2.6   // pack capacity
	ChargeCurrentA    = 1.5   // + while charging
	DischargeCurrentA = -2.0  // - while discharging
	SocHighPct        = 95.0  // switch to discharge above
	SocLowPct         = 20.0  // switch to charge below
	HeatPerAmpC       = 4.0   // steady-state rise above ambient per amp
	ThermalRatePerSec = 0.05  // fraction of the gap closed per second
	CellEmptyV        = 3.0   // per cell at 0%
	CellSpanV         = 1.2   // empty to full
	CellSpreadV       = 0.005 // drop per cell index
)

// simState is the evolving pack state between ticks.
type simState struct {
	socPct   float64
	tempC    float64
	currentA float64
}

// SimulatorService publishes synthetic status payloads on the status topic so
// the inbound path can run without hardware.
type SimulatorService struct {
	bus   Publisher
	topic string
	cells int
	state simState
	log   *logger.Logger
}

func NewSimulatorService(bus Publisher, topic string, cells int, log *logger.Logger) *SimulatorService {
	if cells <= 0 {
		cells = 4
	}
	return &SimulatorService{
		bus:   bus,
		topic: topic,
		cells: cells,
		state: simState{socPct: 60, tempC: AmbientC, currentA: DischargeCurrentA},
		log:   log.Named("simulator"),
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			elapsed := now.Sub(last).Seconds()
			last = now

			st := s.step(elapsed, now)
			payload, err := json.Marshal(st)
			if err != nil {
				s.log.Errorw("simulator_encode_failed", "err", err)
				continue
			}
			if err := s.bus.Publish(ctx, s.topic, payload); err != nil {
				s.log.Warnw("simulator_publish_failed", "topic", s.topic, "err", err)
			}
		}
	}
}

// step advances the pack by elapsed seconds and returns the reading.
func (s *SimulatorService) step(elapsed float64, now time.Time) models.BmsStatus {
	st := &s.state

	st.socPct = clamp(st.socPct+st.currentA*elapsed/3600/CapacityAh*100, 0, 100)
	switch {
	case st.currentA > 0 && st.socPct >= SocHighPct:
		st.currentA = DischargeCurrentA
	case st.currentA < 0 && st.socPct <= SocLowPct:
		st.currentA = ChargeCurrentA
	}

	target := AmbientC + HeatPerAmpC*math.Abs(st.currentA)
	st.tempC += (target - st.tempC) * clamp(ThermalRatePerSec*elapsed, 0, 1)

	cells := make([]float64, s.cells)
	total := 0.0
	base := CellEmptyV + CellSpanV*st.socPct/100
	for i := range cells {
		cells[i] = round3(base - CellSpreadV*float64(i))
		total += cells[i]
	}

	charging := st.currentA > 0
	discharging := !charging
	return models.BmsStatus{
		TotalVoltage:       ptr(round3(total)),
		Current:            ptr(st.currentA),
		Temperature:        ptr(round3(st.tempC)),
		RemainingCapacity:  ptr(round3(st.socPct)),
		ChargeFetStatus:    &charging,
		DischargeFetStatus: &discharging,
		CellVoltages:       cells,
		Timestamp:          now.UTC().Format(time.RFC3339),
	}
}

// helpers
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func ptr[T any](v T) *T { return &v }
