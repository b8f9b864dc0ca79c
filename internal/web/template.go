package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/tank-monitor/internal/status"
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
	"channelName": func(i int) string {
		switch i {
		case 0:
			return "Top"
		case 1:
			return "Upper"
		case 2:
			return "Lower"
		case 3:
			return "Bottom"
		}
		return fmt.Sprintf("Channel %d", i)
	},
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Tank Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.wet { color: #06c; font-weight: bold; }
.dry { color: #888; }
.trusted { color: green; }
.untrusted { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.bar { width: 100%; height: 18px; background: #eee; border: 1px solid #ccc; }
.bar > div { height: 100%; background: #06c; }
.actions form { display: inline; margin-right: 1em; }
.status-msg { color: #555; }
</style>
</head>
<body>
<h1>Tank Monitor</h1>

<h2>Level</h2>
<div class="bar"><div style="width: {{.Level.FillPercent}}%"></div></div>
<table>
<tr><th>Fill</th><td>{{.Level.FillPercent}}%</td></tr>
<tr><th>Wet channels</th><td>{{.Level.WetCount}} of 4</td></tr>
</table>

<h2>Channels</h2>
<table>
<tr><th>Probe</th><th>State</th><th>Last change</th></tr>
{{range $i := seq 4}}
<tr>
<th>{{channelName $i}}</th>
<td class="{{if index $.Level.Wet $i}}wet{{else}}dry{{end}}">{{if index $.Level.Wet $i}}WET{{else}}DRY{{end}}</td>
<td>{{index $.Transitions $i}}</td>
</tr>
{{end}}
</table>

<h2>Clock</h2>
<table>
<tr><th>Wall clock</th><td class="{{if .ClockTrusted}}trusted{{else}}untrusted{{end}}">{{if .ClockTrusted}}synchronized{{else}}not synchronized{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>

<h2>Firmware</h2>
<table>
<tr><th>Running</th><td>{{.Update.RunningName}} (code {{.Update.RunningCode}})</td></tr>
<tr><th>Update state</th><td>{{.Update.State}}</td></tr>
{{if .Update.Pending}}<tr><th>Pending</th><td>{{.Update.Pending.VersionName}} (code {{.Update.Pending.VersionCode}})</td></tr>{{end}}
<tr><th>Last result</th><td class="status-msg">{{.Update.StatusMessage}}</td></tr>
</table>
<div class="actions">
<form method="post" action="/update/check"><button>Check for update</button></form>
<form method="post" action="/update/install"><button {{if not .Update.Available}}disabled{{end}}>Install update</button></form>
</div>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Config.ManifestURL}}<tr><th>Manifest</th><td>{{.Config.ManifestURL}}</td></tr>{{end}}
</table>

<h2>Config</h2>
<table>
<tr><th>Poll interval</th><td>{{.Config.PollMs}} ms</td></tr>
<tr><th>Resync (untrusted)</th><td>{{.Config.ResyncShortMs}} ms</td></tr>
<tr><th>Resync (trusted)</th><td>{{.Config.ResyncLongMs}} ms</td></tr>
{{if .Config.HeartbeatMs}}<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}} ms</td></tr>{{end}}
{{if .Config.InsecureTLS}}<tr><th>Update TLS</th><td class="untrusted">certificate validation disabled</td></tr>{{end}}
</table>

<p class="status-msg">Started {{.StartTime.UTC.Format "2006-01-02 15:04:05"}} UTC &middot; <a href="/index.json">JSON</a></p>
</body>
</html>
`

// renderHTML writes the status page for the given snapshot.
func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render template: %v", err)
	}
}
