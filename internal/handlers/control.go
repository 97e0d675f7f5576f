package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bms_bridge/internal/models"
	"bms_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusDelivered = "delivered"
	statusFailed    = "failed"

	errInvalidBody   = "invalid request body"
	errStatusInvalid = "query 'status' must be true or false"
)

type fetRequest struct {
	ChargeFetStatus    *bool `json:"charge_fet_status"`
	DischargeFetStatus *bool `json:"discharge_fet_status"`
}

type chargeDischargeRequest struct {
	ChargeEnabled    *bool `json:"chargeEnabled"`
	DischargeEnabled *bool `json:"dischargeEnabled"`
}

type electronicLoadRequest struct {
	Enabled     *bool  `json:"electronicLoadEnabled" binding:"required"`
	LoadMode    string `json:"loadMode"`
	CpModeLevel *int   `json:"cpModeLevel"`
}

type dispatchResponse struct {
	Status    string `json:"status"`
	Channel   string `json:"channel"`
	CommandID string `json:"command_id"`
	Command   string `json:"command"`
}

// @Summary      Switch FETs
// @Description  Absent fields leave the FET unchanged.
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        input  body      fetRequest  true  "FET switches"
// @Success      200    {object}  dispatchResponse
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /api/v1/bms/control [post]
// @Security     BearerAuth
func (h *Handler) controlFET(c *gin.Context) {
	var req fetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	h.switchFETs(c, models.FetControl{
		Charge:    models.SwitchOf(req.ChargeFetStatus),
		Discharge: models.SwitchOf(req.DischargeFetStatus),
	})
}

// @Summary      Switch the charge FET
// @Tags         control
// @Produce      json
// @Param        status  query     bool  true  "On or off"
// @Success      200     {object}  dispatchResponse
// @Failure      400     {object}  map[string]string
// @Failure      502     {object}  map[string]string
// @Router       /api/v1/bms/control/charge [post]
// @Security     BearerAuth
func (h *Handler) controlChargeFET(c *gin.Context) {
	on, ok := queryBool(c, "status")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStatusInvalid})
		return
	}
	h.switchFETs(c, models.FetControl{Charge: models.SwitchOf(&on)})
}

// @Summary      Switch the discharge FET
// @Tags         control
// @Produce      json
// @Param        status  query     bool  true  "On or off"
// @Success      200     {object}  dispatchResponse
// @Failure      400     {object}  map[string]string
// @Failure      502     {object}  map[string]string
// @Router       /api/v1/bms/control/discharge [post]
// @Security     BearerAuth
func (h *Handler) controlDischargeFET(c *gin.Context) {
	on, ok := queryBool(c, "status")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStatusInvalid})
		return
	}
	h.switchFETs(c, models.FetControl{Discharge: models.SwitchOf(&on)})
}

// @Summary      Switch both FETs
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        input  body      chargeDischargeRequest  true  "FET switches"
// @Success      200    {object}  dispatchResponse
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /api/v1/bms/control/charge-discharge [post]
// @Security     BearerAuth
func (h *Handler) controlChargeDischarge(c *gin.Context) {
	var req chargeDischargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	h.switchFETs(c, models.FetControl{
		Charge:    models.SwitchOf(req.ChargeEnabled),
		Discharge: models.SwitchOf(req.DischargeEnabled),
	})
}

func (h *Handler) switchFETs(c *gin.Context, f models.FetControl) {
	d, err := h.services.Control.SwitchFETs(c.Request.Context(), f)
	h.respondDispatch(c, models.KindFetControl, d, err)
}

// @Summary      Control the electronic load
// @Description  loadMode defaults to CC and cpModeLevel to 1.
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        input  body      electronicLoadRequest  true  "Load settings"
// @Success      200    {object}  dispatchResponse
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /api/v1/bms/control/electronic-load [post]
// @Security     BearerAuth
func (h *Handler) controlElectronicLoad(c *gin.Context) {
	var req electronicLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	l := models.ElectronicLoadControl{Enabled: *req.Enabled, LoadMode: req.LoadMode}
	if req.CpModeLevel != nil {
		l.CpModeLevel = *req.CpModeLevel
	}
	d, err := h.services.Control.ControlElectronicLoad(c.Request.Context(), l)
	h.respondDispatch(c, models.KindElectronicLoad, d, err)
}

// @Summary      Set protection thresholds
// @Description  Absent fields are left unchanged. Values are checked against the protection bounds before sending.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        input  body      models.ThresholdSet  true  "Thresholds"
// @Success      200    {object}  dispatchResponse
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /api/v1/bms/settings/thresholds [post]
// @Security     BearerAuth
func (h *Handler) setThresholds(c *gin.Context) {
	var req models.ThresholdSet
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	d, err := h.services.Control.SetThresholds(c.Request.Context(), req)
	h.respondDispatch(c, models.KindThresholdSet, d, err)
}

// @Summary      Set protection delays
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        input  body      models.DelaySet  true  "Delays in seconds"
// @Success      200    {object}  dispatchResponse
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /api/v1/bms/settings/delays [post]
// @Security     BearerAuth
func (h *Handler) setDelays(c *gin.Context) {
	var req models.DelaySet
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	d, err := h.services.Control.SetDelays(c.Request.Context(), req)
	h.respondDispatch(c, models.KindDelaySet, d, err)
}

// @Summary      Restore factory protection settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  dispatchResponse
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/bms/settings/reset [post]
// @Security     BearerAuth
func (h *Handler) resetSettings(c *gin.Context) {
	d, err := h.services.Control.ResetSettings(c.Request.Context())
	h.respondDispatch(c, models.KindReset, d, err)
}

// respondDispatch maps a dispatch result to the HTTP response.
func (h *Handler) respondDispatch(c *gin.Context, kind models.CommandKind, d service.Delivery, err error) {
	if err == nil {
		c.JSON(http.StatusOK, dispatchResponse{
			Status:    statusDelivered,
			Channel:   string(d.Channel),
			CommandID: d.CommandID,
			Command:   string(kind),
		})
		return
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason, "field": verr.Field})
		return
	}
	var derr *service.DispatchError
	if errors.As(err, &derr) {
		if h.log != nil {
			h.log.Errorw("command_not_delivered", "command_id", derr.CommandID, "kind", kind, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"status":     statusFailed,
			"command_id": derr.CommandID,
			"error":      err.Error(),
		})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, "failed to send command", "command_failed", err, "kind", kind)
}

func queryBool(c *gin.Context, key string) (bool, bool) {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return false, false
	}
	return v, true
}
