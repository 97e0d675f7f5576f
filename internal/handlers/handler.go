package handlers

import (
	"bms_bridge/internal/broadcast"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// EventSource hands out live event subscriptions for /ws.
type EventSource interface {
	Subscribe(channels ...string) *broadcast.Subscriber
	Unsubscribe(s *broadcast.Subscriber)
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	events      EventSource
	log         *logger.Logger
	authEnabled bool
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, events EventSource, log *logger.Logger, authEnabled bool) *Handler {
	return &Handler{services: services, events: events, log: log, authEnabled: authEnabled}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	if h.authEnabled {
		api.Use(h.operatorIdentity)
	}
	h.registerBmsRoutes(api.Group("/bms"))
}

func (h *Handler) registerBmsRoutes(bms *gin.RouterGroup) {
	bms.GET("/status", h.getStatus)
	bms.GET("/history", h.getHistory)
	bms.GET("/temperature/history", h.getTemperatureHistory)

	control := bms.Group("/control")
	{
		// Body example: {"charge_fet_status":true,"discharge_fet_status":false}
		control.POST("", h.controlFET)
		control.POST("/charge", h.controlChargeFET)
		control.POST("/discharge", h.controlDischargeFET)
		control.POST("/charge-discharge", h.controlChargeDischarge)
		control.POST("/electronic-load", h.controlElectronicLoad)
	}

	settings := bms.Group("/settings")
	{
		settings.POST("/thresholds", h.setThresholds)
		settings.POST("/delays", h.setDelays)
		settings.POST("/reset", h.resetSettings)
	}

	hw := bms.Group("/hardware")
	{
		hw.GET("/status", h.getHardwareStatus)
		hw.GET("/settings", h.getHardwareSettings)
	}
}
