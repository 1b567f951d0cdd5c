package web

import (
	"fmt"
	"html/template"
	"time"

	"github.com/sweeney/thermostat/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Thermostat</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: #c60; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; margin-right: 4px; }
</style>
</head>
<body>
<h1>Thermostat</h1>

<h2>State</h2>
<table>
{{if .HasRecord}}<tr><th>Temperature</th><td id="temperature">{{.Record.Temperature}} &deg;C</td></tr>
<tr><th>Setpoint</th><td id="setpoint">{{.Record.Setpoint}} &deg;C
<button onclick="adjust('decrease')">-</button><button onclick="adjust('increase')">+</button></td></tr>
<tr><th>Heating</th><td id="heating" class="{{if .Record.Heating}}on{{else}}off{{end}}">{{if .Record.Heating}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Record</th><td>{{.Record.Line}}</td></tr>
<tr><th>Sensor errors</th><td>{{.Record.SensorErrors}}</td></tr>
{{else}}<tr><th>Heating</th><td class="unknown">UNKNOWN</td></tr>{{end}}
<tr><th>Ready</th><td>{{if .HasRecord}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Sensor}}<tr><th>Sensor</th><td>TMP{{.Sensor.ID}} @ {{printf "0x%02x" .Sensor.Address}}</td></tr>{{end}}
</table>

<h2>Heating Counts</h2>
<table>
<tr><th>ON</th><td>{{.Counts.HeatOn}}</td></tr>
<tr><th>OFF</th><td>{{.Counts.HeatOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.BaseMs}}ms</td></tr>
<tr><th>Periods</th><td>setpoint {{.Config.SetpointMs}}ms, temperature {{.Config.TemperatureMs}}ms, report {{.Config.ReportMs}}ms</td></tr>
<tr><th>Console</th><td>{{.Config.Console}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/history.json">History</a></p>
<script>
function adjust(dir) {
  fetch("/setpoint/" + dir, { method: "POST" }).then(function() {
    setTimeout(function() { location.reload(); }, 300);
  });
}
</script>
</body>
</html>
`

type pageData struct {
	status.Snapshot
	Uptime time.Duration
}

// Snapshot has an Uptime method but the template needs a field.
func newPageData(snap status.Snapshot) pageData {
	return pageData{Snapshot: snap, Uptime: snap.Uptime()}
}
