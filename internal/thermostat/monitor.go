package thermostat

import "github.com/sweeney/thermostat/internal/logger"

// Decide is the heating comparator: heat while strictly below the setpoint.
// There is no deadband.
func Decide(temperature, setpoint int) bool {
	return temperature < setpoint
}

// Monitor samples the sensor and makes the heating decision.
type Monitor struct {
	sensor  Sensor
	console Console
	errors  uint64
}

// NewMonitor creates a Monitor. Diagnostics go to console.
func NewMonitor(sensor Sensor, console Console) *Monitor {
	return &Monitor{sensor: sensor, console: console}
}

// Update performs one sensor transaction. On success it stores the
// temperature and recomputes heating against the current setpoint. On
// failure s is left untouched, a diagnostic is written and the error is
// returned for the caller to log; the control loop carries on.
func (m *Monitor) Update(s *State) error {
	temp, err := m.sensor.ReadTemperature()
	if err != nil {
		m.errors++
		m.console.Diagnostic("Error reading temperature sensor (%v)\n", err)
		m.console.Diagnostic("Please power cycle your board by unplugging USB and plugging back in.\n")
		return err
	}

	s.Temperature = temp
	heating := Decide(temp, s.Setpoint)
	if heating != s.Heating {
		logger.Debug("thermostat: heating %v -> %v (temp=%d setpoint=%d)", s.Heating, heating, temp, s.Setpoint)
	}
	s.Heating = heating
	return nil
}

// Errors returns the number of failed reads.
func (m *Monitor) Errors() uint64 {
	return m.errors
}
