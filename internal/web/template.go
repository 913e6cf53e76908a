package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/lidgate/internal/status"
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
	"stateClass": func(s string) string {
		switch s {
		case "ON", "DISABLED", "CLOSED":
			return "on"
		case "OFF", "ENABLED", "OPEN":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>lidgate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: #c60; font-weight: bold; }
.off { color: green; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>lidgate</h1>

<h2>Lid</h2>
<table>
<tr><th>Lid</th><td id="lid-state" class="{{stateClass .Lid}}">{{.Lid}}</td></tr>
</table>

<h2>Switches</h2>
<table>
<tr><th>Switch</th><td>State / ON / OFF</td></tr>
{{range .Switches}}<tr><th><a href="/switches/{{.ID}}">{{.ID}}</a></th><td class="{{stateClass .State}}">{{.State}} / {{.Counts.On}} / {{.Counts.Off}}</td></tr>
{{else}}<tr><td colspan="2">none attached</td></tr>
{{end}}</table>

<h2>Devices</h2>
<table>
{{range .Devices}}<tr><th><a href="/devices/{{.ID}}">{{.ID}}</a></th><td class="{{stateClass .State}}">{{.State}}</td></tr>
{{else}}<tr><td colspan="2">none attached</td></tr>
{{end}}<tr><th>Pending events</th><td>{{.Pending}}</td></tr>
<tr><th>Dropped events</th><td>{{.Dropped}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.MQTT.Broker}}</td></tr>
<tr><th>Outbox</th><td>{{.MQTT.Buffered}} queued / {{.MQTT.Dropped}} dropped / {{.MQTT.Superseded}} superseded</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.Session}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{range .Config.Sources}}<tr><th>Source</th><td>{{.}}</td></tr>
{{end}}</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// The template reads the JSON view plus a Duration for uptime.
	data := struct {
		status.StatusInner
		Uptime time.Duration
	}{
		StatusInner: status.BuildInner(snap),
		Uptime:      snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
