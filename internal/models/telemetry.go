package models

import (
	"encoding/json"
	"time"
)

// FetState is the observed state of a charge or discharge FET.
type FetState int

const (
	FetUnknown FetState = iota
	FetOn
	FetOff
)

// FetStateOf maps a nullable hardware flag to a FetState.
func FetStateOf(v *bool) FetState {
	switch {
	case v == nil:
		return FetUnknown
	case *v:
		return FetOn
	default:
		return FetOff
	}
}

// Bool returns the flag form of the state; nil means unknown.
func (s FetState) Bool() *bool {
	switch s {
	case FetOn:
		v := true
		return &v
	case FetOff:
		v := false
		return &v
	default:
		return nil
	}
}

func (s FetState) String() string {
	switch s {
	case FetOn:
		return "on"
	case FetOff:
		return "off"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as true, false or null, matching the hardware payloads.
func (s FetState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Bool())
}

// UnmarshalJSON accepts true, false or null.
func (s *FetState) UnmarshalJSON(b []byte) error {
	var v *bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = FetStateOf(v)
	return nil
}

// BmsStatus is the status payload published by the BMS on the status topic.
type BmsStatus struct {
	TotalVoltage       *float64  `json:"total_voltage"`              // V
	Current            *float64  `json:"current"`                    // A, + charge / - discharge
	Temperature        *float64  `json:"temperature"`                // °C
	RemainingCapacity  *float64  `json:"remaining_capacity_percent"` // %
	ChargeFetStatus    *bool     `json:"charge_fet_status"`          // nil: unknown
	DischargeFetStatus *bool     `json:"discharge_fet_status"`       // nil: unknown
	CellVoltages       []float64 `json:"cell_voltages"`              // V, hardware order
	Timestamp          string    `json:"timestamp,omitempty"`        // advisory only
}

// Snapshot is one persisted telemetry reading. Timestamp is the ingestion time.
type Snapshot struct {
	ID                 int64     `json:"id"`
	TotalVoltage       *float64  `json:"total_voltage"`
	Current            *float64  `json:"current"`
	Temperature        *float64  `json:"temperature"`
	RemainingCapacity  *float64  `json:"remaining_capacity"`
	ChargeFetStatus    FetState  `json:"charge_fet_status"`
	DischargeFetStatus FetState  `json:"discharge_fet_status"`
	CellVoltages       []float64 `json:"cell_voltages"`
	Timestamp          time.Time `json:"timestamp"`
}

// NewSnapshot builds a snapshot from a decoded status payload, stamped with at.
func NewSnapshot(s BmsStatus, at time.Time) Snapshot {
	cells := make([]float64, len(s.CellVoltages))
	copy(cells, s.CellVoltages)
	return Snapshot{
		TotalVoltage:       s.TotalVoltage,
		Current:            s.Current,
		Temperature:        s.Temperature,
		RemainingCapacity:  s.RemainingCapacity,
		ChargeFetStatus:    FetStateOf(s.ChargeFetStatus),
		DischargeFetStatus: FetStateOf(s.DischargeFetStatus),
		CellVoltages:       cells,
		Timestamp:          at.UTC(),
	}
}

// Status converts a stored snapshot back to the status payload shape.
func (s Snapshot) Status() BmsStatus {
	return BmsStatus{
		TotalVoltage:       s.TotalVoltage,
		Current:            s.Current,
		Temperature:        s.Temperature,
		RemainingCapacity:  s.RemainingCapacity,
		ChargeFetStatus:    s.ChargeFetStatus.Bool(),
		DischargeFetStatus: s.DischargeFetStatus.Bool(),
		CellVoltages:       s.CellVoltages,
		Timestamp:          s.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// ControlEcho is a control message observed on the bms/control or bms/fet/status topics.
type ControlEcho struct {
	CommandType        string   `json:"commandType,omitempty"`
	ChargeFetStatus    *bool    `json:"charge_fet_status,omitempty"`
	DischargeFetStatus *bool    `json:"discharge_fet_status,omitempty"`
	Voltage            *float64 `json:"voltage,omitempty"`
	Current            *float64 `json:"current,omitempty"`
	Delay              *int     `json:"delay,omitempty"`
	Release            *int     `json:"release,omitempty"`
}

// ElectronicLoadEcho is a message observed on the electronic_load/control topic.
type ElectronicLoadEcho struct {
	Enabled     *bool  `json:"electronicLoadEnabled,omitempty"`
	LoadMode    string `json:"loadMode,omitempty"`
	CpModeLevel *int   `json:"cpModeLevel,omitempty"`
}
