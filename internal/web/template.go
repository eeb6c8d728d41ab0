package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/cniweb/Hackathon2025/internal/mqtt"
	"github.com/cniweb/Hackathon2025/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s string) string {
		switch s {
		case "PRODUCTION":
			return "production"
		case "STANDBY":
			return "standby"
		case "OFF":
			return "off"
		}
		return "unknown"
	},
	"orAll": func(s string) string {
		if s == "" {
			return "All"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Energy Simulator</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.production { color: green; font-weight: bold; }
.standby { color: #c80; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Energy Simulator{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Machine</h2>
<table>
<tr><th>State</th><td id="machine-state" class="{{stateClass .StateText}}">{{.StateText}}</td></tr>
<tr><th>Load</th><td id="machine-load">{{if .HasLoad}}{{printf "%.2f" .Load}}{{else}}-{{end}}</td></tr>
<tr><th>Tick</th><td id="machine-tick">{{.Tick}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>LED</th><td>{{if lt .Config.LEDPin 0}}disabled{{else if .LED}}on{{else}}off{{end}}</td></tr>
</table>

<h2>Selection</h2>
<table>
<tr><th>Location</th><td>{{.Path.Location}}</td></tr>
<tr><th>Hall</th><td>{{orAll .Path.Hall}}</td></tr>
<tr><th>Machine</th><td>{{orAll .Path.Machine}}</td></tr>
<tr><th>Device</th><td>{{orAll .Path.Device}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Kafka</th><td>{{if .Config.KafkaTopic}}{{.Config.KafkaTopic}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transitions</h2>
<table>
<tr><th>Production</th><td>{{.Counts.Production}}</td></tr>
<tr><th>Standby</th><td>{{.Counts.Standby}}</td></tr>
<tr><th>Off</th><td>{{.Counts.Off}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick interval</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Alerts</th><td>{{if eq .Config.AlertsMs 0}}disabled{{else}}every {{.Config.AlertsMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/api/samples">samples</a> · <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.EventsTopic}}";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("machine-state");

  function setState(state) {
    stateEl.textContent = state;
    stateEl.className = state === "PRODUCTION" ? "production" : state === "STANDBY" ? "standby" : state === "OFF" ? "off" : "unknown";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });
  client.on("reconnect", function() { setDot("pending", "reconnecting"); });
  client.on("offline", function() { setDot("err", "offline"); });
  client.on("error", function() { setDot("err", "error"); });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.machine) {
        setState(msg.machine.to);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

type indexData struct {
	status.Snapshot
	Uptime      time.Duration
	StateText   string
	Load        float64
	HasLoad     bool
	EventsTopic string
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := indexData{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		StateText:   string(snap.State),
		EventsTopic: mqtt.TopicEvents,
	}
	if data.StateText == "" {
		data.StateText = "UNKNOWN"
	}
	if latest, ok := snap.Latest(); ok {
		data.Load = latest.Value
		data.HasLoad = true
	}
	return indexTmpl.Execute(w, data)
}
