// Package mqtt publishes thermostat records and lifecycle events to an MQTT
// broker and accepts remote setpoint commands.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/thermostat/internal/thermostat"
)

// TopicStatus is the MQTT topic for per-second status records.
const TopicStatus = "thermostat/status"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "thermostat/system"

// TopicSetpoint is the MQTT topic on which remote setpoint commands arrive.
const TopicSetpoint = "thermostat/setpoint/set"

// ErrUnknownCommand is returned for setpoint payloads that are not recognised.
var ErrUnknownCommand = errors.New("unknown setpoint command")

// Publisher publishes records to MQTT.
type Publisher interface {
	// Publish sends a status record to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(rec thermostat.Record) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SetpointRequester accepts setpoint adjustment requests.
// Satisfied by *setpoint.Channel.
type SetpointRequester interface {
	RequestIncrease()
	RequestDecrease()
}

// Observer adapts a Publisher so it can be attached to the controller.
func Observer(p Publisher) thermostat.Observer {
	return thermostat.ObserverFunc(p.Publish)
}

// SystemEvent represents a system lifecycle event (startup, shutdown, offline).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload represents the MQTT status message.
type Payload struct {
	Thermostat ThermostatPayload `json:"thermostat"`
}

// ThermostatPayload contains the record details.
type ThermostatPayload struct {
	Timestamp   string `json:"timestamp"`
	Temperature int    `json:"temperature"`
	Setpoint    int    `json:"setpoint"`
	Heating     bool   `json:"heating"`
	Seconds     uint   `json:"seconds"`
	Record      string `json:"record"`
}

// FormatPayload creates the JSON payload for a status record.
func FormatPayload(rec thermostat.Record) ([]byte, error) {
	payload := Payload{
		Thermostat: ThermostatPayload{
			Timestamp:   rec.Time.UTC().Format(time.RFC3339),
			Temperature: rec.Temperature,
			Setpoint:    rec.Setpoint,
			Heating:     rec.Heating,
			Seconds:     rec.Seconds,
			Record:      rec.Line(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload for simple system events (LWT) that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Command is a remote setpoint adjustment.
type Command int

const (
	CommandIncrease Command = iota + 1
	CommandDecrease
)

// ParseCommand decodes a setpoint command payload. Matching is case
// insensitive and ignores surrounding whitespace.
func ParseCommand(payload []byte) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "up", "increase":
		return CommandIncrease, nil
	case "down", "decrease":
		return CommandDecrease, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, payload)
}

// HandleCommand parses payload and raises the matching request flag.
func HandleCommand(req SetpointRequester, payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}
	switch cmd {
	case CommandIncrease:
		req.RequestIncrease()
	case CommandDecrease:
		req.RequestDecrease()
	}
	return nil
}
