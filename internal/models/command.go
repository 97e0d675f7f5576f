package models

// CommandKind tags a control command variant.
type CommandKind string

const (
	KindThresholdSet   CommandKind = "threshold_set"
	KindDelaySet       CommandKind = "delay_set"
	KindFetControl     CommandKind = "fet_control"
	KindElectronicLoad CommandKind = "electronic_load_control"
	KindReset          CommandKind = "reset"
)

// Command is a logical hardware command. Concrete types: ThresholdSet,
// DelaySet, FetControl, ElectronicLoadControl, Reset.
type Command interface {
	Kind() CommandKind
}

// ThresholdSet changes protection thresholds. Nil fields are left unchanged.
type ThresholdSet struct {
	OverchargeVoltage  *float64 `json:"overcharge_voltage,omitempty"`  // V
	UnderchargeVoltage *float64 `json:"undercharge_voltage,omitempty"` // V
	OverchargeCurrent  *float64 `json:"overcharge_current,omitempty"`  // A
	DischargeCurrent   *float64 `json:"discharge_current,omitempty"`   // A
}

func (ThresholdSet) Kind() CommandKind { return KindThresholdSet }

// Empty reports whether no threshold is set.
func (t ThresholdSet) Empty() bool {
	return t.OverchargeVoltage == nil && t.UnderchargeVoltage == nil &&
		t.OverchargeCurrent == nil && t.DischargeCurrent == nil
}

// CurrentDelay is a trip delay and release time pair, in seconds.
type CurrentDelay struct {
	Delay   int `json:"delay"`
	Release int `json:"release"`
}

// DelaySet changes protection timing. Nil fields are left unchanged.
type DelaySet struct {
	VoltageDelay          *int          `json:"voltage_delay,omitempty"`
	ChargeCurrentDelay    *CurrentDelay `json:"charge_current_delay,omitempty"`
	DischargeCurrentDelay *CurrentDelay `json:"discharge_current_delay,omitempty"`
}

func (DelaySet) Kind() CommandKind { return KindDelaySet }

// Empty reports whether no delay is set.
func (d DelaySet) Empty() bool {
	return d.VoltageDelay == nil && d.ChargeCurrentDelay == nil && d.DischargeCurrentDelay == nil
}

// FetSwitch is a requested FET change. FetUnchanged leaves the FET as it is.
type FetSwitch int

const (
	FetUnchanged FetSwitch = iota
	FetSwitchOn
	FetSwitchOff
)

// SwitchOf maps an optional flag to a FetSwitch.
func SwitchOf(v *bool) FetSwitch {
	switch {
	case v == nil:
		return FetUnchanged
	case *v:
		return FetSwitchOn
	default:
		return FetSwitchOff
	}
}

// Flag returns the wire flag, or nil when unchanged.
func (s FetSwitch) Flag() *bool {
	switch s {
	case FetSwitchOn:
		v := true
		return &v
	case FetSwitchOff:
		v := false
		return &v
	default:
		return nil
	}
}

// FetControl switches the charge and/or discharge FET.
type FetControl struct {
	Charge    FetSwitch
	Discharge FetSwitch
}

func (FetControl) Kind() CommandKind { return KindFetControl }

// Empty reports whether both switches are left unchanged.
func (f FetControl) Empty() bool {
	return f.Charge == FetUnchanged && f.Discharge == FetUnchanged
}

// Electronic load modes accepted by the load controller.
const (
	LoadModeCC = "CC"
	LoadModeCP = "CP"

	DefaultLoadMode    = LoadModeCC
	DefaultCpModeLevel = 1
)

// ElectronicLoadControl drives the test electronic load.
type ElectronicLoadControl struct {
	Enabled     bool
	LoadMode    string
	CpModeLevel int
}

func (ElectronicLoadControl) Kind() CommandKind { return KindElectronicLoad }

// Reset restores the factory protection settings.
type Reset struct{}

func (Reset) Kind() CommandKind { return KindReset }
