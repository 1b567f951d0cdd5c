package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/thermostat/internal/config"
	"github.com/sweeney/thermostat/internal/console"
	"github.com/sweeney/thermostat/internal/gpio"
	"github.com/sweeney/thermostat/internal/i2cbus"
	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/mqtt"
	"github.com/sweeney/thermostat/internal/sensor"
	"github.com/sweeney/thermostat/internal/setpoint"
	"github.com/sweeney/thermostat/internal/status"
	"github.com/sweeney/thermostat/internal/thermostat"
	"github.com/sweeney/thermostat/internal/tick"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// daemon is the runLoop wiring with every peripheral faked.
type daemon struct {
	ctrl     *thermostat.Controller
	bus      *i2cbus.FakeBus
	led      *gpio.FakeLED
	buttons  *gpio.FakeButtons
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	out      *bytes.Buffer
	requests *setpoint.Channel
}

// newDaemon builds a daemon whose sensor at 0x48 answers with raw words
// (one per temperature read, the last repeating).
func newDaemon(t *testing.T, raw ...uint16) *daemon {
	t.Helper()
	d := &daemon{
		bus:      i2cbus.NewFakeBus(0x48),
		led:      gpio.NewFakeLED(),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(time.Now(), status.Config{BaseMs: 100}),
		out:      &bytes.Buffer{},
		requests: &setpoint.Channel{},
	}
	for _, w := range raw {
		d.bus.Script = append(d.bus.Script, i2cbus.Response{Data: []byte{byte(w >> 8), byte(w)}})
	}
	d.pub.Requests = d.requests
	d.buttons = gpio.NewFakeButtons(gpio.Handlers{
		Increase: d.requests.RequestIncrease,
		Decrease: d.requests.RequestDecrease,
	})

	dev, err := sensor.Probe(d.bus, sensor.DefaultCandidates, io.Discard)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	d.ctrl, err = thermostat.New(thermostat.DefaultOptions(), d.requests, dev, d.led, console.New(d.out))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	d.ctrl.AddObserver(d.tracker)
	d.ctrl.AddObserver(mqtt.Observer(d.pub))
	return d
}

// run drives n ticks, then delivers sig. onTick runs before tick n's step.
func (d *daemon) run(t *testing.T, n int, sig os.Signal, onTick func(n int)) error {
	t.Helper()
	sigCh := make(chan os.Signal, 1)
	src := &tick.Fake{OnTick: func(i int) {
		if onTick != nil {
			onTick(i)
		}
		if i == n {
			sigCh <- sig
		}
	}}
	return runLoop(d.ctrl, src, d.pub, d.tracker, d.led, sigCh)
}

func (d *daemon) lines() []string {
	return strings.Split(strings.TrimSuffix(d.out.String(), "\n"), "\n")
}

func TestRunLoopReportsOncePerSecond(t *testing.T) {
	d := newDaemon(t, 0x0a00) // 20°C

	if err := d.run(t, 25, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"<20,22,1,0001>", "<20,22,1,0002>", "<20,22,1,0003>"}
	got := d.lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if n := d.ctrl.Scheduler().Ticks(); n != 25 {
		t.Errorf("ticks: got %d, want 25", n)
	}
}

func TestRunLoopPublishesRecords(t *testing.T) {
	d := newDaemon(t, 0x0c80) // 25°C

	if err := d.run(t, 11, syscall.SIGINT, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.pub.Records) != 2 {
		t.Fatalf("expected 2 published records, got %d", len(d.pub.Records))
	}
	r := d.pub.Records[1]
	if r.Temperature != 25 || r.Setpoint != 22 || r.Heating || r.Seconds != 2 {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	d := newDaemon(t, 0x0a00)

	if err := d.run(t, 3, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(d.pub.SystemEvents))
	}
	ev := d.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" {
		t.Errorf("unexpected event: %s/%s", ev.Event, ev.Reason)
	}
	if !ev.Retained {
		t.Error("expected SHUTDOWN to be retained")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(d.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || !sj.Status.Ready || sj.Status.Seconds != 1 {
		t.Errorf("unexpected payload status: %+v", sj.Status)
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	d := newDaemon(t, 0x0a00)

	if err := d.run(t, 1, syscall.SIGINT, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.pub.SystemEvents[0].Reason; got != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", got)
	}
}

func TestRunLoopTurnsHeaterOffOnExit(t *testing.T) {
	d := newDaemon(t, 0x0a00) // 20°C, heating

	if err := d.run(t, 11, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []bool{true, true, false}
	if len(d.led.Values) != len(want) {
		t.Fatalf("led writes: got %v, want %v", d.led.Values, want)
	}
	for i := range want {
		if d.led.Values[i] != want[i] {
			t.Errorf("led write %d: got %v, want %v", i, d.led.Values[i], want[i])
		}
	}
}

func TestRunLoopButtonPress(t *testing.T) {
	d := newDaemon(t, 0x0b80) // 23°C, not heating at 22

	err := d.run(t, 11, syscall.SIGTERM, func(n int) {
		if n == 2 {
			d.buttons.PressIncrease()
		}
		if n == 4 {
			d.buttons.PressIncrease()
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Presses at ticks 2 and 4 drain at ticks 3 and 5; the temperature
	// task at tick 6 sees 23 < 24.
	last := d.ctrl.LastRecord()
	if last.Setpoint != 24 {
		t.Errorf("setpoint: got %d, want 24", last.Setpoint)
	}
	if !last.Heating {
		t.Error("expected heating after raising the setpoint above the temperature")
	}
	if got := d.lines()[1]; got != "<23,24,1,0002>" {
		t.Errorf("second record: got %q", got)
	}
}

func TestRunLoopRemoteSetpoint(t *testing.T) {
	d := newDaemon(t, 0x0a00)

	err := d.run(t, 11, syscall.SIGTERM, func(n int) {
		if n == 2 {
			if err := d.pub.Deliver([]byte("down")); err != nil {
				t.Errorf("deliver: %v", err)
			}
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.ctrl.State().Setpoint; got != 21 {
		t.Errorf("setpoint: got %d, want 21", got)
	}
}

func TestRunLoopSensorFailure(t *testing.T) {
	d := newDaemon(t)
	d.bus.Script = []i2cbus.Response{
		{Data: []byte{0x0a, 0x00}},
		{Err: errors.New("bus stuck")},
	}

	if err := d.run(t, 11, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := d.out.String()
	if !strings.Contains(out, "Error reading temperature sensor") {
		t.Errorf("expected diagnostic on console, got %q", out)
	}
	last := d.ctrl.LastRecord()
	if last.Temperature != 20 {
		t.Errorf("temperature: got %d, want last good 20", last.Temperature)
	}
	if last.SensorErrors == 0 {
		t.Error("expected sensor errors to be counted")
	}
}

func TestRunLoopPublishErrorDoesNotStop(t *testing.T) {
	d := newDaemon(t, 0x0a00)
	d.pub.PublishError = errors.New("broker gone")
	d.pub.PublishSystemError = errors.New("broker gone")

	if err := d.run(t, 21, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(d.lines()); got != 3 {
		t.Errorf("expected console records despite publish errors, got %d", got)
	}
}

func TestRunLoopTrackerUpdated(t *testing.T) {
	d := newDaemon(t, 0x0a00)

	if err := d.run(t, 21, syscall.SIGTERM, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := d.tracker.Snapshot()
	if !snap.HasRecord || snap.Record.Seconds != 3 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Counts.HeatOn != 1 || snap.Counts.HeatOff != 0 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
}

func TestRunLoopTickSourceError(t *testing.T) {
	d := newDaemon(t, 0x0a00)

	err := runLoop(d.ctrl, &tick.Fake{Err: tick.ErrStopped}, d.pub, d.tracker, d.led, make(chan os.Signal))
	if !errors.Is(err, tick.ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if len(d.pub.SystemEvents) != 0 {
		t.Error("expected no SHUTDOWN event when the tick source fails")
	}
}

func TestRunLoopWithoutPublisher(t *testing.T) {
	d := newDaemon(t, 0x0a00)
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	if err := runLoop(d.ctrl, &tick.Fake{}, nil, d.tracker, d.led, sigCh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishLifecycleStartup(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tr := status.NewTracker(time.Now(), status.Config{Broker: "tcp://b:1883"})

	publishLifecycle(pub, tr, "STARTUP", "")

	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "STARTUP" {
		t.Fatalf("unexpected events: %+v", pub.SystemEvents)
	}
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected tracker to pick up connection state")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before the first report")
	}
	if sj.Status.Reason != "" {
		t.Errorf("expected no reason, got %q", sj.Status.Reason)
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
		{nil, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thermostat.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseFlagsDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, printState, err := parseFlags(fs, []string{"-config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if printState {
		t.Error("expected printState=false")
	}
	if cfg.Timing.Base != 100*time.Millisecond {
		t.Errorf("base: got %v", cfg.Timing.Base)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http: got %q", cfg.HTTP.Addr)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("broker: got %q, want disabled", cfg.MQTT.Broker)
	}
}

func TestParseFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  broker: tcp://file:1883\nhttp:\n  addr: \":9000\"\nhistory:\n  path: /var/lib/thermostat.db\n")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	cfg, printState, err := parseFlags(fs, []string{
		"-config", path,
		"-broker", "tcp://flag:1883",
		"-http", "",
		"-console", "/dev/ttyAMA0",
		"-i2c", "/dev/i2c-0",
		"-log-level", "warn",
		"-print-state",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer logger.SetLevel(logger.InfoLevel)

	if !printState {
		t.Error("expected printState=true")
	}
	if cfg.MQTT.Broker != "tcp://flag:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.HTTP.Addr != "" {
		t.Errorf("http: got %q, want disabled by explicit empty flag", cfg.HTTP.Addr)
	}
	if cfg.History.Path != "/var/lib/thermostat.db" {
		t.Errorf("history path from file lost: %q", cfg.History.Path)
	}
	if cfg.Console.Port != "/dev/ttyAMA0" || cfg.Sensor.Bus != "/dev/i2c-0" {
		t.Errorf("console/i2c: got %q/%q", cfg.Console.Port, cfg.Sensor.Bus)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level: got %q", cfg.LogLevel)
	}
}

func TestParseFlagsInvalidTiming(t *testing.T) {
	path := writeConfig(t, "timing:\n  base: 300ms\n")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	_, _, err := parseFlags(fs, []string{"-config", path})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestParseFlagsBadLogLevel(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	if _, _, err := parseFlags(fs, []string{"-config", path, "-log-level", "loud"}); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestControllerOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Control.InitialSetpoint = 19

	opts := controllerOptions(cfg)
	if opts.Base != 100*time.Millisecond || opts.ReportPeriod != time.Second {
		t.Errorf("unexpected timing: %+v", opts)
	}
	if opts.InitialSetpoint != 19 || opts.InitialTemperature != 25 {
		t.Errorf("unexpected initial values: %+v", opts)
	}
}

func TestSensorCandidatesFromConfig(t *testing.T) {
	got := sensorCandidates(config.Default())
	if len(got) != len(sensor.DefaultCandidates) {
		t.Fatalf("expected %d candidates, got %d", len(sensor.DefaultCandidates), len(got))
	}
	for i, c := range got {
		if c != sensor.DefaultCandidates[i] {
			t.Errorf("candidate %d: got %+v, want %+v", i, c, sensor.DefaultCandidates[i])
		}
	}
}
