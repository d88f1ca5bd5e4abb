// webthingd - Web of Things device server
//
// This is the main entry point for the webthingd daemon. It hosts a set of
// devices as Web of Things endpoints: schema-described properties, queued
// actions, and an event log, served over HTTP with a WebSocket push channel
// per thing and mDNS presence advertisement on the local network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openhomelab/webthingd/internal/api"
	"github.com/openhomelab/webthingd/internal/discovery"
	"github.com/openhomelab/webthingd/internal/infrastructure/config"
	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
	"github.com/openhomelab/webthingd/internal/infrastructure/mqtt"
	"github.com/openhomelab/webthingd/internal/thing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting webthingd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration; a missing file means defaults, so the daemon
	// starts with zero configuration.
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the demo devices
	lamp := makeLight(log)
	sensor := makeHumiditySensor(log)
	things := []*thing.Thing{lamp, sensor}
	for _, t := range things {
		t.SetLogger(log)
		t.SetRetention(cfg.Things.EventLogSize, cfg.Things.ActionLogSize)
	}

	// Start the sensor's fake hardware poller
	stopPoller := startSensorPoller(ctx, sensor, log)
	defer stopPoller()

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Mirror every thing's notifications to the broker
		for _, t := range things {
			mirror := mqtt.NewMirror(t.ID(), mqttClient, byte(cfg.MQTT.QoS), log)
			t.Subscribe(mirror)
			defer mirror.Close()
			log.Info("broker mirror attached", "thing", t.ID())
		}
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Presence advertisement
	var advertiser api.Advertiser = discovery.Noop{}
	if cfg.Discovery.Enabled {
		advertiser = discovery.NewMDNS(cfg.Discovery.Domain, log)
	} else {
		log.Info("mDNS discovery disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:     cfg.Server,
		WS:         cfg.WebSocket,
		Logger:     log,
		Things:     things,
		Advertiser: advertiser,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	if err := server.Stop(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

// loadConfig loads the configuration file, falling back to defaults when no
// file is present.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := getConfigPath()
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		log.Info("no config file found, using defaults", "path", path)
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)
	return cfg, nil
}

// getConfigPath returns the configuration file path.
// Uses WEBTHINGD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WEBTHINGD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
