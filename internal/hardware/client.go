// Package hardware is the direct HTTP link to the BMS hardware controller.
package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bms_bridge/internal/config"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/metrics"
	"bms_bridge/internal/models"
)

const (
	pathHealth          = "/health"
	pathStatus          = "/api/bms/status"
	pathSettings        = "/api/bms/settings"
	pathOvervoltage     = "/api/bms/settings/overcharge-voltage"
	pathUndervoltage    = "/api/bms/settings/undercharge-voltage"
	pathOvercurrent     = "/api/bms/settings/overcharge-current"
	pathDischargeCurr   = "/api/bms/settings/discharge-current"
	pathVoltageDelay    = "/api/bms/settings/voltage-delay"
	pathChargeDelay     = "/api/bms/settings/charge-current-delay"
	pathDischargeDelay  = "/api/bms/settings/discharge-current-delay"
	pathReset           = "/api/bms/settings/reset"
	pathFetControl      = "/api/bms/fet/control"
	pathElectronicLoad  = "/api/electronic-load/control"
	defaultProbeTimeout = 5 * time.Second
)

// StatusError is returned when the controller answers with a non-200 status.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hardware %s: HTTP %d", e.Path, e.Code)
}

// Client talks to the hardware controller. It is safe for concurrent use.
type Client struct {
	baseURL        string
	enabled        bool
	probeTimeout   time.Duration
	requestTimeout time.Duration
	http           *http.Client
	log            *logger.Logger
}

// NewClient builds a client from config. httpClient may be nil.
func NewClient(cfg config.HardwareConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          16,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 5 * time.Second,
			},
		}
	}
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = defaultProbeTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		enabled:        cfg.Enabled,
		probeTimeout:   probe,
		requestTimeout: cfg.RequestTimeout,
		http:           httpClient,
		log:            log.Named("hardware"),
	}
}

// Available probes /health. It is true only for a 200 answer within the
// probe timeout, and always false when the link is disabled.
func (c *Client) Available(ctx context.Context) bool {
	if !c.enabled {
		metrics.LinkProbes.WithLabelValues("disabled").Inc()
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		metrics.LinkProbes.WithLabelValues("down").Inc()
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if c.log != nil {
			c.log.Warnw("hardware_unavailable", "err", err)
		}
		metrics.LinkProbes.WithLabelValues("down").Inc()
		return false
	}
	drain(resp)

	if resp.StatusCode != http.StatusOK {
		metrics.LinkProbes.WithLabelValues("down").Inc()
		return false
	}
	metrics.LinkProbes.WithLabelValues("up").Inc()
	return true
}

func (c *Client) SetOverchargeVoltage(ctx context.Context, v float64) error {
	return c.post(ctx, pathOvervoltage, url.Values{"voltage": {formatFloat(v)}}, nil)
}

func (c *Client) SetUnderchargeVoltage(ctx context.Context, v float64) error {
	return c.post(ctx, pathUndervoltage, url.Values{"voltage": {formatFloat(v)}}, nil)
}

func (c *Client) SetOverchargeCurrent(ctx context.Context, a float64) error {
	return c.post(ctx, pathOvercurrent, url.Values{"current": {formatFloat(a)}}, nil)
}

func (c *Client) SetDischargeCurrent(ctx context.Context, a float64) error {
	return c.post(ctx, pathDischargeCurr, url.Values{"current": {formatFloat(a)}}, nil)
}

func (c *Client) SetVoltageDelay(ctx context.Context, delay int) error {
	return c.post(ctx, pathVoltageDelay, url.Values{"delay": {strconv.Itoa(delay)}}, nil)
}

func (c *Client) SetChargeCurrentDelay(ctx context.Context, d models.CurrentDelay) error {
	return c.post(ctx, pathChargeDelay, delayQuery(d), nil)
}

func (c *Client) SetDischargeCurrentDelay(ctx context.Context, d models.CurrentDelay) error {
	return c.post(ctx, pathDischargeDelay, delayQuery(d), nil)
}

func (c *Client) ResetSettings(ctx context.Context) error {
	return c.post(ctx, pathReset, nil, nil)
}

type fetBody struct {
	Charge    *bool `json:"charge_fet_status,omitempty"`
	Discharge *bool `json:"discharge_fet_status,omitempty"`
}

// ControlFET sends only the switches that change.
func (c *Client) ControlFET(ctx context.Context, f models.FetControl) error {
	return c.post(ctx, pathFetControl, nil, fetBody{
		Charge:    f.Charge.Flag(),
		Discharge: f.Discharge.Flag(),
	})
}

type loadBody struct {
	Enabled     bool   `json:"electronicLoadEnabled"`
	LoadMode    string `json:"loadMode"`
	CpModeLevel int    `json:"cpModeLevel"`
}

func (c *Client) ControlElectronicLoad(ctx context.Context, l models.ElectronicLoadControl) error {
	return c.post(ctx, pathElectronicLoad, nil, loadBody{
		Enabled:     l.Enabled,
		LoadMode:    l.LoadMode,
		CpModeLevel: l.CpModeLevel,
	})
}

// Execute performs cmd as one or more direct calls. The first failing call
// aborts the rest. All calls share one request timeout.
func (c *Client) Execute(ctx context.Context, cmd models.Command) error {
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	switch v := cmd.(type) {
	case models.ThresholdSet:
		if v.OverchargeVoltage != nil {
			if err := c.SetOverchargeVoltage(ctx, *v.OverchargeVoltage); err != nil {
				return err
			}
		}
		if v.UnderchargeVoltage != nil {
			if err := c.SetUnderchargeVoltage(ctx, *v.UnderchargeVoltage); err != nil {
				return err
			}
		}
		if v.OverchargeCurrent != nil {
			if err := c.SetOverchargeCurrent(ctx, *v.OverchargeCurrent); err != nil {
				return err
			}
		}
		if v.DischargeCurrent != nil {
			if err := c.SetDischargeCurrent(ctx, *v.DischargeCurrent); err != nil {
				return err
			}
		}
		return nil
	case models.DelaySet:
		if v.VoltageDelay != nil {
			if err := c.SetVoltageDelay(ctx, *v.VoltageDelay); err != nil {
				return err
			}
		}
		if v.ChargeCurrentDelay != nil {
			if err := c.SetChargeCurrentDelay(ctx, *v.ChargeCurrentDelay); err != nil {
				return err
			}
		}
		if v.DischargeCurrentDelay != nil {
			if err := c.SetDischargeCurrentDelay(ctx, *v.DischargeCurrentDelay); err != nil {
				return err
			}
		}
		return nil
	case models.FetControl:
		return c.ControlFET(ctx, v)
	case models.ElectronicLoadControl:
		return c.ControlElectronicLoad(ctx, v)
	case models.Reset:
		return c.ResetSettings(ctx)
	default:
		return fmt.Errorf("hardware: unsupported command %T", cmd)
	}
}

// Status returns the controller's live status, or nil when it cannot be read.
func (c *Client) Status(ctx context.Context) map[string]any {
	return c.getMap(ctx, pathStatus)
}

// Settings returns the controller's protection settings, or nil when they cannot be read.
func (c *Client) Settings(ctx context.Context) map[string]any {
	return c.getMap(ctx, pathSettings)
}

func (c *Client) getMap(ctx context.Context, path string) map[string]any {
	if !c.enabled {
		return nil
	}
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if c.log != nil {
			c.log.Errorw("hardware_read_failed", "path", path, "err", err)
		}
		return nil
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		if c.log != nil {
			c.log.Errorw("hardware_read_failed", "path", path, "status", resp.StatusCode)
		}
		return nil
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if c.log != nil {
			c.log.Errorw("hardware_read_decode_failed", "path", path, "err", err)
		}
		return nil
	}
	return out
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body any) error {
	if !c.enabled {
		return fmt.Errorf("hardware %s: link disabled", path)
	}
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hardware %s: encode body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, rdr)
	if err != nil {
		return fmt.Errorf("hardware %s: build request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hardware %s: %w", path, err)
	}
	drain(resp)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if c.log != nil {
		c.log.Infow("hardware_command_ok", "path", path, "query", query.Encode())
	}
	return nil
}

func (c *Client) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func delayQuery(d models.CurrentDelay) url.Values {
	return url.Values{
		"delay":   {strconv.Itoa(d.Delay)},
		"release": {strconv.Itoa(d.Release)},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
