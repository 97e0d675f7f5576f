package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bms_bridge/internal/models"
	"bms_bridge/internal/service"
)

func postJSON(t *testing.T, s *service.Service, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(s)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestControlFET_Routes(t *testing.T) {
	cases := []struct {
		name string
		path string
		body string
		want models.FetControl
	}{
		{
			name: "both switches",
			path: "/api/v1/bms/control",
			body: `{"charge_fet_status":true,"discharge_fet_status":false}`,
			want: models.FetControl{Charge: models.FetSwitchOn, Discharge: models.FetSwitchOff},
		},
		{
			name: "charge only in body",
			path: "/api/v1/bms/control",
			body: `{"charge_fet_status":false}`,
			want: models.FetControl{Charge: models.FetSwitchOff},
		},
		{
			name: "charge query",
			path: "/api/v1/bms/control/charge?status=true",
			want: models.FetControl{Charge: models.FetSwitchOn},
		},
		{
			name: "discharge query",
			path: "/api/v1/bms/control/discharge?status=false",
			want: models.FetControl{Discharge: models.FetSwitchOff},
		},
		{
			name: "charge-discharge",
			path: "/api/v1/bms/control/charge-discharge",
			body: `{"chargeEnabled":false,"dischargeEnabled":true}`,
			want: models.FetControl{Charge: models.FetSwitchOff, Discharge: models.FetSwitchOn},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctl := &mockControl{delivery: service.Delivery{CommandID: "c-1", Channel: service.ChannelDirect}}
			w := postJSON(t, &service.Service{Control: ctl}, tc.path, tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			if ctl.lastFET != tc.want {
				t.Fatalf("SwitchFETs got %+v, want %+v", ctl.lastFET, tc.want)
			}
			var resp dispatchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			want := dispatchResponse{Status: "delivered", Channel: "direct", CommandID: "c-1", Command: "fet_control"}
			if resp != want {
				t.Fatalf("response got %+v, want %+v", resp, want)
			}
		})
	}
}

func TestControlFET_BadQueryStatus(t *testing.T) {
	ctl := &mockControl{}
	w := postJSON(t, &service.Service{Control: ctl}, "/api/v1/bms/control/charge?status=maybe", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	if ctl.calls != 0 {
		t.Fatalf("control called %d times", ctl.calls)
	}
}

func TestControlElectronicLoad(t *testing.T) {
	ctl := &mockControl{delivery: service.Delivery{CommandID: "c-2", Channel: service.ChannelBus}}
	w := postJSON(t, &service.Service{Control: ctl}, "/api/v1/bms/control/electronic-load",
		`{"electronicLoadEnabled":true,"loadMode":"CP","cpModeLevel":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	want := models.ElectronicLoadControl{Enabled: true, LoadMode: "CP", CpModeLevel: 3}
	if ctl.lastLoad != want {
		t.Fatalf("got %+v, want %+v", ctl.lastLoad, want)
	}

	// enabled flag is required
	ctl = &mockControl{}
	w = postJSON(t, &service.Service{Control: ctl}, "/api/v1/bms/control/electronic-load", `{"loadMode":"CC"}`)
	if w.Code != http.StatusBadRequest || ctl.calls != 0 {
		t.Fatalf("status=%d calls=%d, want 400 and no call", w.Code, ctl.calls)
	}
}

func TestSettingsRoutes(t *testing.T) {
	ctl := &mockControl{delivery: service.Delivery{CommandID: "c-3", Channel: service.ChannelBus}}
	s := &service.Service{Control: ctl}

	w := postJSON(t, s, "/api/v1/bms/settings/thresholds", `{"overcharge_voltage":4.2,"discharge_current":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("thresholds status=%d, body=%s", w.Code, w.Body.String())
	}
	if ctl.lastThresholds.OverchargeVoltage == nil || *ctl.lastThresholds.OverchargeVoltage != 4.2 ||
		ctl.lastThresholds.DischargeCurrent == nil || ctl.lastThresholds.UnderchargeVoltage != nil {
		t.Fatalf("unexpected thresholds: %+v", ctl.lastThresholds)
	}

	w = postJSON(t, s, "/api/v1/bms/settings/delays", `{"voltage_delay":3,"charge_current_delay":{"delay":6,"release":12}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("delays status=%d, body=%s", w.Code, w.Body.String())
	}
	if ctl.lastDelays.VoltageDelay == nil || *ctl.lastDelays.VoltageDelay != 3 ||
		ctl.lastDelays.ChargeCurrentDelay == nil || *ctl.lastDelays.ChargeCurrentDelay != (models.CurrentDelay{Delay: 6, Release: 12}) {
		t.Fatalf("unexpected delays: %+v", ctl.lastDelays)
	}

	w = postJSON(t, s, "/api/v1/bms/settings/reset", "")
	if w.Code != http.StatusOK || ctl.resetCalled != 1 {
		t.Fatalf("reset status=%d calls=%d", w.Code, ctl.resetCalled)
	}

	w = postJSON(t, s, "/api/v1/bms/settings/thresholds", `{"overcharge_voltage":"high"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad body status=%d, want 400", w.Code)
	}
}

func TestRespondDispatch_Errors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      int
		wantField string
	}{
		{
			name:      "validation",
			err:       &service.ValidationError{Field: "overcharge_voltage", Reason: "overcharge voltage out of range"},
			want:      http.StatusBadRequest,
			wantField: "overcharge_voltage",
		},
		{
			name: "both paths failed",
			err: &service.DispatchError{
				CommandID: "c-9",
				Kind:      models.KindReset,
				BusErr:    errors.New("not connected"),
			},
			want: http.StatusBadGateway,
		},
		{
			name: "unexpected",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctl := &mockControl{err: tc.err}
			w := postJSON(t, &service.Service{Control: ctl}, "/api/v1/bms/settings/reset", "")
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.want, w.Body.String())
			}
			var m map[string]any
			_ = json.Unmarshal(w.Body.Bytes(), &m)
			if tc.wantField != "" && m["field"] != tc.wantField {
				t.Fatalf("field got %v, want %s", m["field"], tc.wantField)
			}
			if tc.want == http.StatusBadGateway && (m["status"] != "failed" || m["command_id"] != "c-9") {
				t.Fatalf("unexpected body: %v", m)
			}
		})
	}
}
