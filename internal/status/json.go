package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Ready         bool        `json:"ready"`
	Temperature   *int        `json:"temperature"`
	Setpoint      *int        `json:"setpoint"`
	Heating       bool        `json:"heating"`
	Seconds       uint        `json:"seconds"`
	Record        string      `json:"record,omitempty"`
	SensorErrors  uint64      `json:"sensor_errors"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"heating_counts"`
	Sensor        *SensorJSON `json:"sensor,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of heating transition counts.
type CountsJSON struct {
	HeatOn  int `json:"on"`
	HeatOff int `json:"off"`
}

// SensorJSON is the JSON representation of the probed sensor.
type SensorJSON struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BaseMs        int64  `json:"base_ms"`
	SetpointMs    int64  `json:"setpoint_ms"`
	TemperatureMs int64  `json:"temperature_ms"`
	ReportMs      int64  `json:"report_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	Console       string `json:"console"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.HasRecord,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			HeatOn:  snap.Counts.HeatOn,
			HeatOff: snap.Counts.HeatOff,
		},
		Config: ConfigJSON{
			BaseMs:        snap.Config.BaseMs,
			SetpointMs:    snap.Config.SetpointMs,
			TemperatureMs: snap.Config.TemperatureMs,
			ReportMs:      snap.Config.ReportMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			Console:       snap.Config.Console,
		},
	}

	if snap.HasRecord {
		rec := snap.Record
		inner.Temperature = &rec.Temperature
		inner.Setpoint = &rec.Setpoint
		inner.Heating = rec.Heating
		inner.Seconds = rec.Seconds
		inner.Record = rec.Line()
		inner.SensorErrors = rec.SensorErrors
	}
	return inner
}

func buildSensor(snap Snapshot, inner *StatusInner) {
	if snap.Sensor != nil {
		inner.Sensor = &SensorJSON{
			ID:      snap.Sensor.ID,
			Address: formatAddress(snap.Sensor.Address),
		}
	}
}

func formatAddress(a uint16) string {
	return fmt.Sprintf("0x%02x", a)
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildSensor(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildSensor(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
