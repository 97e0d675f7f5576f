// @title                       BMS Bridge API
// @version                     1.0
// @description                 Command dispatch and telemetry bridge for a battery management system.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "bms_bridge/docs"
	"bms_bridge/internal/broadcast"
	"bms_bridge/internal/bus"
	"bms_bridge/internal/config"
	"bms_bridge/internal/handlers"
	"bms_bridge/internal/hardware"
	"bms_bridge/internal/logger"
	"bms_bridge/internal/repository"
	"bms_bridge/internal/repository/db"
	"bms_bridge/internal/server"
	"bms_bridge/internal/service"

	"github.com/spf13/pflag"
)

const (
	shutdownTimeout = 10 * time.Second
	broadcastBuffer = 64
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		logger.New(logger.ErrorLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	hub := broadcast.NewHub(broadcastBuffer, log)
	recorder := service.NewTelemetryRecorder(repos.Snapshots, hub, log)
	router := service.NewRouter(recorder, hub, log)

	inbox := bus.NewInbox(router, cfg.MQTT.Subscriptions, cfg.MQTT.QueueSize, log)
	// Queued messages are still persisted after a signal, so the workers outlive ctx.
	inbox.Start(context.WithoutCancel(ctx))
	mqttClient := bus.NewClient(cfg.MQTT, inbox, log)
	connectBus(mqttClient, cfg.MQTT, log)

	link := hardware.NewClient(cfg.Hardware, nil, log)
	dispatcher := service.NewDispatcher(link, mqttClient, service.Topics{
		Control:        cfg.MQTT.Topics.Control,
		ElectronicLoad: cfg.MQTT.Topics.ElectronicLoad,
	}, cfg.MQTT.PublishTimeout, log)

	services := service.NewService(service.Deps{
		Repos:      repos,
		Dispatcher: dispatcher,
		Reader:     link,
		Auth:       cfg.Auth,
		Log:        log,
	})

	if cfg.Simulator.Enabled {
		sim := service.NewSimulatorService(mqttClient, cfg.MQTT.Topics.Status, cfg.Simulator.Cells, log)
		go sim.Run(ctx, cfg.Simulator.Interval)
		log.Infow("simulator_started", "topic", cfg.MQTT.Topics.Status, "interval", cfg.Simulator.Interval)
	}

	apiHandler := handlers.NewHandler(services, hub, log, cfg.Auth.Enabled)
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, stop, log)

	<-ctx.Done()
	log.Infow("shutting down server...")
	shutdown(srv, mqttClient, inbox, log)
}

// connectBus makes the first broker connection. A timeout is not fatal:
// paho keeps retrying and the dispatcher reports the bus as down meanwhile.
func connectBus(c *bus.Client, cfg config.MQTTConfig, log *logger.Logger) {
	if err := c.Connect(); err != nil {
		log.Warnw("mqtt_connect_failed", "broker", cfg.Broker, "err", err)
		return
	}
	log.Infow("mqtt_connected", "broker", cfg.Broker, "subscriptions", cfg.Subscriptions)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, stop context.CancelFunc, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Errorw("error starting server", "err", err)
			stop()
		}
	}()
}

// shutdown stops intake first, then drains what was already queued.
func shutdown(srv *server.Server, mqttClient *bus.Client, inbox *bus.Inbox, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	mqttClient.Close()
	inbox.Close()
}
