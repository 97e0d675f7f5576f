package service

import (
	"errors"
	"strings"
	"testing"

	"bms_bridge/internal/models"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func TestValidateSettings_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		p         SettingsProposal
		wantField string
	}{
		{"ov at max", SettingsProposal{OverchargeVoltage: f64(4.20)}, ""},
		{"ov at min", SettingsProposal{OverchargeVoltage: f64(3.70)}, ""},
		{"ov above", SettingsProposal{OverchargeVoltage: f64(4.25)}, FieldOvervoltage},
		{"ov below", SettingsProposal{OverchargeVoltage: f64(3.69)}, FieldOvervoltage},
		{"uv at max", SettingsProposal{UnderchargeVoltage: f64(4.00)}, ""},
		{"uv below", SettingsProposal{UnderchargeVoltage: f64(2.49)}, FieldUndervoltage},
		{"chg oc at bounds", SettingsProposal{OverchargeCurrent: f64(2.50)}, ""},
		{"chg oc above", SettingsProposal{OverchargeCurrent: f64(2.51)}, FieldOvercurrent},
		{"dsg oc at min", SettingsProposal{DischargeCurrent: f64(2.00)}, ""},
		{"dsg oc above", SettingsProposal{DischargeCurrent: f64(6.01)}, FieldDischargeCurrent},
		{"voltage delay ok", SettingsProposal{VoltageDelay: iptr(7)}, ""},
		{"voltage delay low", SettingsProposal{VoltageDelay: iptr(1)}, FieldVoltageDelay},
		{"charge delay high", SettingsProposal{ChargeDelay: iptr(16), ChargeRelease: iptr(20)}, FieldChargeDelay},
		{"charge release low", SettingsProposal{ChargeDelay: iptr(5), ChargeRelease: iptr(9)}, FieldChargeRelease},
		{"discharge delay low", SettingsProposal{DischargeDelay: iptr(4), DischargeRelease: iptr(32)}, FieldDischargeDelay},
		{"discharge release high", SettingsProposal{DischargeDelay: iptr(15), DischargeRelease: iptr(33)}, FieldDischargeRelease},
		{"empty proposal", SettingsProposal{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(tt.p)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Fatalf("field: want %q, got %q (%s)", tt.wantField, ve.Field, ve.Reason)
			}
			if ve.Reason == "" {
				t.Fatal("empty reason")
			}
		})
	}
}

func TestValidateSettings_VoltageGap(t *testing.T) {
	err := ValidateSettings(SettingsProposal{OverchargeVoltage: f64(3.80), UnderchargeVoltage: f64(3.76)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != FieldVoltageGap {
		t.Fatalf("expected gap violation, got %v", err)
	}
	if !strings.Contains(ve.Reason, "0.05") {
		t.Fatalf("reason should name the gap: %q", ve.Reason)
	}

	if err := ValidateSettings(SettingsProposal{OverchargeVoltage: f64(3.80), UnderchargeVoltage: f64(3.75)}); err != nil {
		t.Fatalf("gap of exactly 0.05 V must pass: %v", err)
	}
}

func TestValidateSettings_GapOnlyWhenBothPresent(t *testing.T) {
	if err := ValidateSettings(SettingsProposal{UnderchargeVoltage: f64(4.00)}); err != nil {
		t.Fatalf("lone undervoltage must not trigger the gap check: %v", err)
	}
}

func TestValidateSettings_Order(t *testing.T) {
	// Every field is bad; overvoltage is reported first.
	p := SettingsProposal{
		OverchargeVoltage:  f64(5),
		UnderchargeVoltage: f64(1),
		OverchargeCurrent:  f64(9),
		VoltageDelay:       iptr(0),
	}
	var ve *ValidationError
	if !errors.As(ValidateSettings(p), &ve) || ve.Field != FieldOvervoltage {
		t.Fatalf("expected overvoltage first, got %+v", ve)
	}

	// Range checks on both voltages come before the gap.
	p = SettingsProposal{OverchargeVoltage: f64(3.80), UnderchargeVoltage: f64(2.0)}
	if !errors.As(ValidateSettings(p), &ve) || ve.Field != FieldUndervoltage {
		t.Fatalf("expected undervoltage before gap, got %+v", ve)
	}

	// The gap comes before currents.
	p = SettingsProposal{OverchargeVoltage: f64(3.80), UnderchargeVoltage: f64(3.79), OverchargeCurrent: f64(9)}
	if !errors.As(ValidateSettings(p), &ve) || ve.Field != FieldVoltageGap {
		t.Fatalf("expected gap before currents, got %+v", ve)
	}
}

func TestProposalFromDelays(t *testing.T) {
	p := ProposalFromDelays(models.DelaySet{ChargeCurrentDelay: &models.CurrentDelay{Delay: 20, Release: 12}})
	if p.ChargeDelay == nil || *p.ChargeDelay != 20 || p.ChargeRelease == nil || *p.ChargeRelease != 12 {
		t.Fatalf("unexpected proposal: %+v", p)
	}
	var ve *ValidationError
	if !errors.As(ValidateSettings(p), &ve) || ve.Field != FieldChargeDelay {
		t.Fatalf("expected charge delay violation, got %v", ve)
	}
}
