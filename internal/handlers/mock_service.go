package handlers

import (
	"context"
	"net/http"
	"time"

	"bms_bridge/internal/models"
	"bms_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	delivery service.Delivery
	err      error

	lastThresholds models.ThresholdSet
	lastDelays     models.DelaySet
	lastFET        models.FetControl
	lastLoad       models.ElectronicLoadControl
	resetCalled    int
	calls          int
}

func (m *mockControl) SetThresholds(_ context.Context, t models.ThresholdSet) (service.Delivery, error) {
	m.calls++
	m.lastThresholds = t
	return m.delivery, m.err
}
func (m *mockControl) SetDelays(_ context.Context, d models.DelaySet) (service.Delivery, error) {
	m.calls++
	m.lastDelays = d
	return m.delivery, m.err
}
func (m *mockControl) SwitchFETs(_ context.Context, f models.FetControl) (service.Delivery, error) {
	m.calls++
	m.lastFET = f
	return m.delivery, m.err
}
func (m *mockControl) ControlElectronicLoad(_ context.Context, l models.ElectronicLoadControl) (service.Delivery, error) {
	m.calls++
	m.lastLoad = l
	return m.delivery, m.err
}
func (m *mockControl) ResetSettings(context.Context) (service.Delivery, error) {
	m.calls++
	m.resetCalled++
	return m.delivery, m.err
}

type mockMonitoring struct {
	status    models.BmsStatus
	statusErr error
	rows      []models.Snapshot
	rowsErr   error

	lastFrom  time.Time
	lastTo    time.Time
	lastLimit int
}

func (m *mockMonitoring) LatestStatus(context.Context) (models.BmsStatus, error) {
	return m.status, m.statusErr
}
func (m *mockMonitoring) History(_ context.Context, from, to time.Time) ([]models.Snapshot, error) {
	m.lastFrom, m.lastTo = from, to
	return m.rows, m.rowsErr
}
func (m *mockMonitoring) RecentReadings(_ context.Context, limit int) ([]models.Snapshot, error) {
	m.lastLimit = limit
	return m.rows, m.rowsErr
}

type mockHardware struct {
	status   map[string]any
	settings map[string]any
}

func (m *mockHardware) HardwareStatus(context.Context) map[string]any   { return m.status }
func (m *mockHardware) HardwareSettings(context.Context) map[string]any { return m.settings }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil, false)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
