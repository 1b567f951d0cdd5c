// Command thermostat runs the closed-loop heater controller: it samples an
// I2C temperature sensor, takes setpoint requests from buttons, MQTT and
// HTTP, drives the heater output and reports status once a second.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/thermostat/internal/config"
	"github.com/sweeney/thermostat/internal/console"
	"github.com/sweeney/thermostat/internal/gpio"
	"github.com/sweeney/thermostat/internal/history"
	"github.com/sweeney/thermostat/internal/i2cbus"
	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/mqtt"
	"github.com/sweeney/thermostat/internal/sensor"
	"github.com/sweeney/thermostat/internal/setpoint"
	"github.com/sweeney/thermostat/internal/status"
	"github.com/sweeney/thermostat/internal/thermostat"
	"github.com/sweeney/thermostat/internal/tick"
	"github.com/sweeney/thermostat/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(2)
	}
	if err := run(cfg, printState); err != nil {
		logger.Error("fatal: %v", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file named by -config and applies any flags
// that were set explicitly on top of it. An explicitly empty -broker, -http
// or -db disables that feature.
func parseFlags(fs *flag.FlagSet, args []string) (*config.Config, bool, error) {
	configPath := fs.String("config", "/etc/thermostat.yaml", "YAML config file (missing file uses defaults)")
	broker := fs.String("broker", "", "MQTT broker address (empty disables)")
	httpAddr := fs.String("http", "", "HTTP status address (empty disables)")
	consolePort := fs.String("console", "", "serial port for status records (empty uses stdout)")
	i2cBus := fs.String("i2c", "", "I2C bus device")
	dbPath := fs.String("db", "", "SQLite history database (empty disables)")
	logLevel := fs.String("log-level", "", "debug, info, warn, error or off")
	printState := fs.Bool("print-state", false, "Probe the sensor, print one reading and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "console":
			cfg.Console.Port = *consolePort
		case "i2c":
			cfg.Sensor.Bus = *i2cBus
		case "db":
			cfg.History.Path = *dbPath
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, false, err
	}
	logger.SetLevel(level)

	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	// Console
	con := console.Stdout()
	consoleName := "stdout"
	if cfg.Console.Port != "" {
		c, err := console.OpenSerial(cfg.Console.Port, cfg.Console.BaudRate)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		con, consoleName = c, cfg.Console.Port
	}
	defer con.Close()

	// I2C and sensor
	con.Printf("Initializing I2C Driver - ")
	bus, err := i2cbus.Open(cfg.Sensor.Bus)
	if err != nil {
		con.Printf("Failed\n")
		return fmt.Errorf("init i2c: %w", err)
	}
	con.Printf("Passed\n")
	defer bus.Close()

	dev, err := sensor.Probe(bus, sensorCandidates(cfg), con)
	if err != nil {
		return fmt.Errorf("probe sensor: %w", err)
	}

	// Print state mode
	if printState {
		t, err := dev.ReadTemperature()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("temperature=%d\n", t)
		return nil
	}

	// Heater output, lit until the first report mirrors the heating flag
	led, err := gpio.NewRealLED(cfg.GPIO.Chip, cfg.GPIO.LEDPin, cfg.GPIO.LEDActiveLow, true)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer led.Close()

	requests := &setpoint.Channel{}
	handlers := gpio.Handlers{Increase: requests.RequestIncrease}
	if !cfg.GPIO.SingleButton() {
		handlers.Decrease = requests.RequestDecrease
	}
	buttons, err := gpio.WatchButtons(cfg.GPIO.Chip, cfg.GPIO.IncreasePin, cfg.GPIO.DecreasePin, handlers)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer buttons.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		BaseMs:        cfg.Timing.Base.Milliseconds(),
		SetpointMs:    cfg.Timing.Setpoint.Milliseconds(),
		TemperatureMs: cfg.Timing.Temperature.Milliseconds(),
		ReportMs:      cfg.Timing.Report.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		Console:       consoleName,
	})
	c := dev.Candidate()
	tracker.SetSensor(status.SensorInfo{ID: c.ID, Address: c.Address})

	ctrl, err := thermostat.New(controllerOptions(cfg), requests, dev, led, con)
	if err != nil {
		return err
	}
	ctrl.AddObserver(tracker)

	// Initialize MQTT
	var publisher *mqtt.RealPublisher
	if cfg.MQTT.Broker != "" {
		will, _ := mqtt.FormatSystemPayload(mqtt.SystemEvent{
			Timestamp: time.Now(),
			Event:     "OFFLINE",
			Reason:    "MQTT_DISCONNECT",
		})
		publisher, err = mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			BufferSize:         cfg.MQTT.BufferSize,
			WillPayload:        will,
			Requests:           requests,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		tracker.SetMQTTConnected(publisher.IsConnected())
		ctrl.AddObserver(mqtt.Observer(publisher))
	}

	// Initialize history
	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path, cfg.History.MaxRows)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		defer store.Close()
		ctrl.AddObserver(store)
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		var hist web.HistorySource
		if store != nil {
			hist = store
		}
		srv := web.New(cfg.HTTP.Addr, tracker, requests, hist)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("http status server listening on %s", cfg.HTTP.Addr)
	}

	var pub mqtt.Publisher
	if publisher != nil {
		pub = publisher
	}
	publishLifecycle(pub, tracker, "STARTUP", "")

	logger.Info("started: base=%v sensor=TMP%s@0x%02x console=%s broker=%q",
		cfg.Timing.Base, c.ID, c.Address, consoleName, cfg.MQTT.Broker)

	ticker := tick.Start(cfg.Timing.Base)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, ticker, pub, tracker, led, sigCh)
}

// runLoop drives the controller until a signal arrives, then publishes
// SHUTDOWN and turns the heater off.
func runLoop(ctrl *thermostat.Controller, src tick.Source, publisher mqtt.Publisher, tracker *status.Tracker, actuator thermostat.Actuator, sig <-chan os.Signal) error {
	var received os.Signal
	until := func() bool {
		select {
		case received = <-sig:
			return true
		default:
			return false
		}
	}

	if err := ctrl.Run(context.Background(), src, until); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	logger.Info("received %v, shutting down", received)
	publishLifecycle(publisher, tracker, "SHUTDOWN", signalName(received))

	if err := actuator.Set(false); err != nil {
		logger.Warn("failed to turn heater off: %v", err)
	}
	return nil
}

// publishLifecycle sends a retained system event carrying a full status
// snapshot. A nil publisher is a no-op.
func publishLifecycle(publisher mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	if publisher == nil {
		return
	}
	if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
		tracker.SetMQTTConnected(cs.IsConnected())
	}
	snap := tracker.Snapshot()
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		logger.Warn("failed to publish %s event: %v", event, err)
		return
	}
	logger.Info("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func controllerOptions(cfg *config.Config) thermostat.Options {
	return thermostat.Options{
		Base:               cfg.Timing.Base,
		SetpointPeriod:     cfg.Timing.Setpoint,
		TemperaturePeriod:  cfg.Timing.Temperature,
		ReportPeriod:       cfg.Timing.Report,
		InitialTemperature: cfg.Control.InitialTemperature,
		InitialSetpoint:    cfg.Control.InitialSetpoint,
	}
}

func sensorCandidates(cfg *config.Config) []sensor.Candidate {
	out := make([]sensor.Candidate, len(cfg.Sensor.Candidates))
	for i, c := range cfg.Sensor.Candidates {
		out[i] = sensor.Candidate{Address: c.Address, Register: c.Register, ID: c.ID}
	}
	return out
}
