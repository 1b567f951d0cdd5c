package thermostat

import (
	"time"

	"github.com/sweeney/thermostat/internal/logger"
)

// Reporter advances the uptime counter, mirrors heating onto the actuator
// and writes the status record.
type Reporter struct {
	actuator Actuator
	console  Console
	now      func() time.Time
}

// NewReporter creates a Reporter. now may be nil to use time.Now.
func NewReporter(actuator Actuator, console Console, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{actuator: actuator, console: console, now: now}
}

// Report runs one report-task body against s and returns the record it
// emitted. Actuator and console failures are logged and otherwise ignored.
func (r *Reporter) Report(s *State) Record {
	s.Seconds++

	if err := r.actuator.Set(s.Heating); err != nil {
		logger.Warn("thermostat: actuator write failed: %v", err)
	}

	if err := r.console.WriteRecord(FormatRecord(*s)); err != nil {
		logger.Warn("thermostat: console write failed: %v", err)
	}

	return Record{
		Temperature: s.Temperature,
		Setpoint:    s.Setpoint,
		Heating:     s.Heating,
		Seconds:     s.Seconds,
		Time:        r.now(),
	}
}
