package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/api/rest"
	"github.com/openfieldbus/commandbridge/internal/api/websocket"
	"github.com/openfieldbus/commandbridge/internal/command"
	"github.com/openfieldbus/commandbridge/internal/config"
	"github.com/openfieldbus/commandbridge/internal/dispatch"
	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/modbus"
	"github.com/openfieldbus/commandbridge/internal/mqtt"
	"github.com/openfieldbus/commandbridge/internal/report"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the service configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully")

	// A broken or ambiguous device map is fatal: the bridge must not run
	// against a partial mapping.
	store, err := mapping.Load(cfg.DeviceMap)
	if err != nil {
		logger.Fatal("Failed to load device map", zap.Error(err))
	}

	logger.Info("Device map loaded",
		zap.Int("coils", len(store.Coils())),
		zap.Int("holding_registers", len(store.HoldingRegisters())))

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	writer := modbus.NewWriter(modbus.Config{
		Host:    cfg.Modbus.Host,
		Port:    cfg.Modbus.Port,
		UnitID:  uint8(cfg.Modbus.UnitID),
		Timeout: cfg.Modbus.Timeout,
	}, logger)

	// The MQTT client doubles as the error reporter's sink, so the batch
	// handler is wired in through a late-bound closure.
	var handler *command.Handler
	mqttClient := mqtt.NewClient(mqtt.Config{
		Host:         cfg.MQTT.Host,
		Port:         cfg.MQTT.Port,
		CommandTopic: cfg.MQTT.CommandTopic,
		QoS:          byte(cfg.MQTT.QoS),
		ClientID:     cfg.MQTT.ClientID,
	}, func(payload []byte) { handler.HandleBatch(payload) }, logger)

	reporter := report.NewReporter(
		mqttClient,
		cfg.MQTT.ErrorTopicFor(cfg.Site.DeviceID),
		logger,
		report.WithNotifier(wsHub),
	)

	dispatcher := dispatch.NewDispatcher(store, writer, reporter, logger)
	handler = command.NewHandler(store, dispatcher, reporter, logger, command.WithEvents(wsHub))

	restServer := rest.NewServer(cfg, store, dispatcher, logger, wsHub)
	if err := restServer.Start(); err != nil {
		logger.Fatal("Failed to start REST server", zap.Error(err))
	}

	if err := mqttClient.Connect(); err != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}

	logger.Info("Command bridge started successfully")

	// Graceful shutdown on signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := restServer.Shutdown(ctx); err != nil {
		logger.Error("REST server shutdown failed", zap.Error(err))
	}
	mqttClient.Disconnect()

	logger.Info("Command bridge stopped successfully")
}
