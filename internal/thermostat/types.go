// Package thermostat contains the control logic: the setpoint, temperature
// and report tasks, and the controller state they share.
// This package has NO hardware dependencies (no GPIO, I2C, MQTT or OS).
// Collaborators are injected as interfaces and time is injectable.
package thermostat

import (
	"fmt"
	"time"
)

// State is the controller state. It is owned by the scheduler's execution
// context; only the three tasks mutate it.
type State struct {
	Temperature int  // °C, last good sample
	Setpoint    int  // °C, unbounded
	Heating     bool // temperature < setpoint at last sample
	Seconds     uint // report-task firings since start
}

// Record is the immutable status emitted by each report-task firing.
type Record struct {
	Temperature  int
	Setpoint     int
	Heating      bool
	Seconds      uint
	SensorErrors uint64 // failed sensor reads since start
	Time         time.Time
}

// Line returns the console form "<AA,BB,S,CCCC>" without a line terminator.
func (r Record) Line() string {
	return fmt.Sprintf("<%02d,%02d,%d,%04d>", r.Temperature, r.Setpoint, boolDigit(r.Heating), r.Seconds)
}

// FormatRecord returns the console line for s, newline terminated.
func FormatRecord(s State) string {
	return fmt.Sprintf("<%02d,%02d,%d,%04d>\n", s.Temperature, s.Setpoint, boolDigit(s.Heating), s.Seconds)
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Sensor produces one temperature sample per call.
type Sensor interface {
	ReadTemperature() (int, error)
}

// Actuator drives the heater output.
type Actuator interface {
	Set(on bool) error
}

// Console receives status records and diagnostics.
type Console interface {
	WriteRecord(line string) error
	Diagnostic(format string, args ...interface{})
}

// Observer is notified after each report with the fresh record. Observers
// run in the scheduler's context and must not block for long.
type Observer interface {
	Observe(rec Record) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec Record) error

// Observe calls f.
func (f ObserverFunc) Observe(rec Record) error { return f(rec) }
