package service

import (
	"encoding/json"
	"fmt"

	"bms_bridge/internal/models"
)

// Command types understood by the BMS firmware on the control topic.
const (
	cmdSetOvervoltage    = "set_OV"
	cmdSetUndervoltage   = "set_UV"
	cmdSetOvercurrent    = "set_ChgOC"
	cmdSetDischargeCurr  = "set_DsgOC"
	cmdSetVoltageDelay   = "set_delayVoltage"
	cmdSetChargeDelay    = "set_delayChgOC"
	cmdSetDischargeDelay = "set_delayDsgOC"
	cmdResetSettings     = "Reset_settings"
)

// Topics are the outbound bus topics.
type Topics struct {
	Control        string
	ElectronicLoad string
}

// BusMessage is one encoded publish.
type BusMessage struct {
	Topic   string
	Payload []byte
}

type settingMessage struct {
	CommandType string   `json:"commandType"`
	Voltage     *float64 `json:"voltage,omitempty"`
	Current     *float64 `json:"current,omitempty"`
	Delay       *int     `json:"delay,omitempty"`
	Release     *int     `json:"release,omitempty"`
}

type fetMessage struct {
	Charge    *bool `json:"charge_fet_status,omitempty"`
	Discharge *bool `json:"discharge_fet_status,omitempty"`
}

type loadMessage struct {
	Enabled     bool   `json:"electronicLoadEnabled"`
	LoadMode    string `json:"loadMode"`
	CpModeLevel int    `json:"cpModeLevel"`
}

// EncodeCommand turns cmd into the bus messages that carry it, in send order.
func EncodeCommand(cmd models.Command, topics Topics) ([]BusMessage, error) {
	var bodies []any
	topic := topics.Control

	switch v := cmd.(type) {
	case models.ThresholdSet:
		if v.OverchargeVoltage != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetOvervoltage, Voltage: v.OverchargeVoltage})
		}
		if v.UnderchargeVoltage != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetUndervoltage, Voltage: v.UnderchargeVoltage})
		}
		if v.OverchargeCurrent != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetOvercurrent, Current: v.OverchargeCurrent})
		}
		if v.DischargeCurrent != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetDischargeCurr, Current: v.DischargeCurrent})
		}
	case models.DelaySet:
		if v.VoltageDelay != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetVoltageDelay, Delay: v.VoltageDelay})
		}
		if cd := v.ChargeCurrentDelay; cd != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetChargeDelay, Delay: &cd.Delay, Release: &cd.Release})
		}
		if dd := v.DischargeCurrentDelay; dd != nil {
			bodies = append(bodies, settingMessage{CommandType: cmdSetDischargeDelay, Delay: &dd.Delay, Release: &dd.Release})
		}
	case models.Reset:
		bodies = append(bodies, settingMessage{CommandType: cmdResetSettings})
	case models.FetControl:
		bodies = append(bodies, fetMessage{Charge: v.Charge.Flag(), Discharge: v.Discharge.Flag()})
	case models.ElectronicLoadControl:
		topic = topics.ElectronicLoad
		bodies = append(bodies, loadMessage{Enabled: v.Enabled, LoadMode: v.LoadMode, CpModeLevel: v.CpModeLevel})
	default:
		return nil, fmt.Errorf("encode command: unsupported type %T", cmd)
	}

	if len(bodies) == 0 {
		return nil, fmt.Errorf("encode %s: nothing to send", cmd.Kind())
	}

	out := make([]BusMessage, 0, len(bodies))
	for _, b := range bodies {
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
		}
		out = append(out, BusMessage{Topic: topic, Payload: payload})
	}
	return out, nil
}
