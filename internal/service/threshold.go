package service

import (
	"fmt"

	"bms_bridge/internal/models"
)

// Field names reported in ValidationError.
const (
	FieldOvervoltage      = "overcharge_voltage"
	FieldUndervoltage     = "undercharge_voltage"
	FieldVoltageGap       = "overcharge_voltage,undercharge_voltage"
	FieldOvercurrent      = "overcharge_current"
	FieldDischargeCurrent = "discharge_current"
	FieldVoltageDelay     = "voltage_delay"
	FieldChargeDelay      = "charge_current_delay.delay"
	FieldChargeRelease    = "charge_current_delay.release"
	FieldDischargeDelay   = "discharge_current_delay.delay"
	FieldDischargeRelease = "discharge_current_delay.release"
	minVoltageGap         = 0.05
	voltageGapTolerance   = 1e-9
)

type floatBound struct {
	min, max float64
	unit     string
	label    string
}

type intBound struct {
	min, max int
	label    string
}

// Protection limits of the BMS front end. Both ends are inclusive.
var settingBounds = struct {
	overvoltage, undervoltage, overcurrent, dischargeCurrent floatBound
	voltageDelay, currentDelay, currentRelease               intBound
}{
	overvoltage:      floatBound{3.70, 4.20, "V", "overcharge voltage"},
	undervoltage:     floatBound{2.50, 4.00, "V", "undercharge voltage"},
	overcurrent:      floatBound{1.50, 2.50, "A", "overcharge current"},
	dischargeCurrent: floatBound{2.00, 6.00, "A", "discharge current"},
	voltageDelay:     intBound{2, 7, "voltage delay"},
	currentDelay:     intBound{5, 15, "current delay"},
	currentRelease:   intBound{10, 32, "current release"},
}

// ValidationError reports the first setting that is out of bounds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// SettingsProposal is a partial set of protection settings. Nil fields are not checked.
type SettingsProposal struct {
	OverchargeVoltage  *float64
	UnderchargeVoltage *float64
	OverchargeCurrent  *float64
	DischargeCurrent   *float64
	VoltageDelay       *int
	ChargeDelay        *int
	ChargeRelease      *int
	DischargeDelay     *int
	DischargeRelease   *int
}

// ProposalFromThresholds maps a threshold command onto a proposal.
func ProposalFromThresholds(t models.ThresholdSet) SettingsProposal {
	return SettingsProposal{
		OverchargeVoltage:  t.OverchargeVoltage,
		UnderchargeVoltage: t.UnderchargeVoltage,
		OverchargeCurrent:  t.OverchargeCurrent,
		DischargeCurrent:   t.DischargeCurrent,
	}
}

// ProposalFromDelays maps a delay command onto a proposal.
func ProposalFromDelays(d models.DelaySet) SettingsProposal {
	p := SettingsProposal{VoltageDelay: d.VoltageDelay}
	if cd := d.ChargeCurrentDelay; cd != nil {
		p.ChargeDelay, p.ChargeRelease = &cd.Delay, &cd.Release
	}
	if dd := d.DischargeCurrentDelay; dd != nil {
		p.DischargeDelay, p.DischargeRelease = &dd.Delay, &dd.Release
	}
	return p
}

// ValidateSettings returns the first violation in a fixed order, or nil.
func ValidateSettings(p SettingsProposal) error {
	b := settingBounds

	if err := checkFloat(FieldOvervoltage, p.OverchargeVoltage, b.overvoltage); err != nil {
		return err
	}
	if err := checkFloat(FieldUndervoltage, p.UnderchargeVoltage, b.undervoltage); err != nil {
		return err
	}
	if p.OverchargeVoltage != nil && p.UnderchargeVoltage != nil {
		gap := *p.OverchargeVoltage - *p.UnderchargeVoltage
		if gap < minVoltageGap-voltageGapTolerance {
			return &ValidationError{
				Field: FieldVoltageGap,
				Reason: fmt.Sprintf("overcharge voltage (%.2f V) must exceed undercharge voltage (%.2f V) by at least %.2f V",
					*p.OverchargeVoltage, *p.UnderchargeVoltage, minVoltageGap),
			}
		}
	}
	if err := checkFloat(FieldOvercurrent, p.OverchargeCurrent, b.overcurrent); err != nil {
		return err
	}
	if err := checkFloat(FieldDischargeCurrent, p.DischargeCurrent, b.dischargeCurrent); err != nil {
		return err
	}

	ints := []struct {
		field string
		v     *int
		b     intBound
	}{
		{FieldVoltageDelay, p.VoltageDelay, b.voltageDelay},
		{FieldChargeDelay, p.ChargeDelay, b.currentDelay},
		{FieldChargeRelease, p.ChargeRelease, b.currentRelease},
		{FieldDischargeDelay, p.DischargeDelay, b.currentDelay},
		{FieldDischargeRelease, p.DischargeRelease, b.currentRelease},
	}
	for _, c := range ints {
		if c.v == nil {
			continue
		}
		if *c.v < c.b.min || *c.v > c.b.max {
			return &ValidationError{
				Field:  c.field,
				Reason: fmt.Sprintf("%s must be between %d and %d seconds, got %d", c.b.label, c.b.min, c.b.max, *c.v),
			}
		}
	}
	return nil
}

func checkFloat(field string, v *float64, b floatBound) error {
	if v == nil {
		return nil
	}
	if *v < b.min || *v > b.max {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%s must be between %.2f and %.2f %s, got %g", b.label, b.min, b.max, b.unit, *v),
		}
	}
	return nil
}
