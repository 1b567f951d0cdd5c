package thermostat

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/sched"
	"github.com/sweeney/thermostat/internal/setpoint"
	"github.com/sweeney/thermostat/internal/tick"
)

// Task names, in priority order.
const (
	TaskSetpoint    = "setpoint"
	TaskTemperature = "temperature"
	TaskReport      = "report"
)

// Options configures a Controller.
type Options struct {
	Base               time.Duration
	SetpointPeriod     time.Duration
	TemperaturePeriod  time.Duration
	ReportPeriod       time.Duration
	InitialTemperature int
	InitialSetpoint    int

	// Now stamps records; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the reference timing: 100ms base, tasks at
// 200/500/1000ms, starting at 25°C with a 22°C setpoint.
func DefaultOptions() Options {
	return Options{
		Base:               100 * time.Millisecond,
		SetpointPeriod:     200 * time.Millisecond,
		TemperaturePeriod:  500 * time.Millisecond,
		ReportPeriod:       1000 * time.Millisecond,
		InitialTemperature: 25,
		InitialSetpoint:    22,
	}
}

// Controller wires the three tasks to a scheduler.
type Controller struct {
	state     State
	requests  *setpoint.Channel
	monitor   *Monitor
	reporter  *Reporter
	sched     *sched.Scheduler
	observers []Observer
	last      Record
}

// New creates a Controller. requests is the channel input producers write
// to; it may be shared with any number of producers.
func New(opts Options, requests *setpoint.Channel, sensor Sensor, actuator Actuator, console Console) (*Controller, error) {
	if requests == nil {
		requests = &setpoint.Channel{}
	}
	c := &Controller{
		state: State{
			Temperature: opts.InitialTemperature,
			Setpoint:    opts.InitialSetpoint,
		},
		requests: requests,
		monitor:  NewMonitor(sensor, console),
		reporter: NewReporter(actuator, console, opts.Now),
	}

	s, err := sched.New(opts.Base,
		sched.Task{Name: TaskSetpoint, Period: opts.SetpointPeriod, Run: c.setpointTask},
		sched.Task{Name: TaskTemperature, Period: opts.TemperaturePeriod, Run: c.temperatureTask},
		sched.Task{Name: TaskReport, Period: opts.ReportPeriod, Run: c.reportTask},
	)
	if err != nil {
		return nil, fmt.Errorf("build schedule: %w", err)
	}
	c.sched = s
	return c, nil
}

// AddObserver registers o to receive every record, after those already
// registered.
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Requests returns the setpoint request channel.
func (c *Controller) Requests() *setpoint.Channel {
	return c.requests
}

// Scheduler exposes the underlying scheduler for inspection.
func (c *Controller) Scheduler() *sched.Scheduler {
	return c.sched
}

// State returns a copy of the controller state. Only call it from the
// scheduler's context (or when the loop is not running).
func (c *Controller) State() State {
	return c.state
}

// LastRecord returns the most recent report, zero before the first.
func (c *Controller) LastRecord() Record {
	return c.last
}

// Step processes one tick without waiting.
func (c *Controller) Step() []string {
	return c.sched.Step()
}

// Run drives the scheduler from src until until reports true (nil runs
// forever) or src fails.
func (c *Controller) Run(ctx context.Context, src tick.Source, until func() bool) error {
	logger.Info("thermostat: running (base=%v setpoint=%d temperature=%d)", c.sched.Base(), c.state.Setpoint, c.state.Temperature)
	return c.sched.Run(ctx, src, until)
}

func (c *Controller) setpointTask() {
	before := c.state.Setpoint
	c.state.Setpoint = c.requests.Drain(before)
	if c.state.Setpoint != before {
		logger.Info("thermostat: setpoint %d -> %d", before, c.state.Setpoint)
	}
}

func (c *Controller) temperatureTask() {
	if err := c.monitor.Update(&c.state); err != nil {
		logger.Warn("thermostat: sensor read failed, keeping temp=%d heating=%v: %v", c.state.Temperature, c.state.Heating, err)
	}
}

func (c *Controller) reportTask() {
	rec := c.reporter.Report(&c.state)
	rec.SensorErrors = c.monitor.Errors()
	c.last = rec

	for _, o := range c.observers {
		if err := o.Observe(rec); err != nil {
			logger.Warn("thermostat: observer error: %v", err)
		}
	}
}
