// Package status provides a thread-safe status tracker for the thermostat
// daemon. It is written from the control loop and read by HTTP handlers and
// MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/thermostat/internal/thermostat"
)

// SensorInfo identifies the probed temperature sensor.
type SensorInfo struct {
	ID      string
	Address uint16
}

// Counts tracks heating transitions since startup.
type Counts struct {
	HeatOn  int
	HeatOff int
}

// Config contains daemon configuration for display.
type Config struct {
	BaseMs        int64
	SetpointMs    int64
	TemperatureMs int64
	ReportMs      int64
	Broker        string
	HTTPAddr      string
	Console       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Record        thermostat.Record
	HasRecord     bool
	Counts        Counts
	Sensor        *SensorInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Observe stores the latest record and counts heating transitions.
// Called from the report task on every firing.
func (t *Tracker) Observe(rec thermostat.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Record.Heating
	if !t.snap.HasRecord {
		prev = false
	}
	if rec.Heating != prev {
		if rec.Heating {
			t.snap.Counts.HeatOn++
		} else {
			t.snap.Counts.HeatOff++
		}
	}
	t.snap.Record = rec
	t.snap.HasRecord = true
	return nil
}

// SetSensor records the probed sensor.
func (t *Tracker) SetSensor(info SensorInfo) {
	t.mu.Lock()
	t.snap.Sensor = &info
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
