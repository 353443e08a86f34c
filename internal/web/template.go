package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/torchd/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"pct": func(f float64) int {
		return int(f * 100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Torch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unavailable { color: red; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; padding: 6px 14px; margin: 2px; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
.note { color: #888; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Torch<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Torch</th><td id="torch-state" class="{{if .Torch}}on{{else}}off{{end}}">{{onOff .Torch}}</td></tr>
<tr><th>Mode</th><td id="mode-state">{{.Mode}}</td></tr>
<tr><th>Hardware</th><td class="{{if .TorchAvailable}}on{{else}}unavailable{{end}}">{{if .TorchAvailable}}acquired{{else}}unavailable{{end}}</td></tr>
<tr><th>Shake to toggle</th><td id="shake-state">{{if .ShakeEnabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Brightness</th><td id="intensity-state">{{pct .Intensity}}%</td></tr>
</table>

<h2>Controls</h2>
<p>
<button onclick="post('/api/torch')">Toggle Torch</button>
<button onclick="post('/api/strobe', {active: true})">Strobe</button>
<button onclick="post('/api/strobe', {active: false})">Stop Strobe</button>
<button onclick="post('/api/sos')">S.O.S</button>
</p>
<p>
<label>Brightness <input id="intensity" type="range" min="10" max="100" value="{{pct .Intensity}}"
  onchange="post('/api/intensity', {intensity: this.value / 100})"></label>
</p>
<p class="note">The torch LED has no dimmer; brightness is recorded but does not change output.</p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Torch ON</th><td>{{.Counts.TorchOn}}</td></tr>
<tr><th>Torch OFF</th><td>{{.Counts.TorchOff}}</td></tr>
<tr><th>Shakes</th><td>{{.Counts.Shakes}}</td></tr>
<tr><th>Shakes suppressed</th><td>{{.Counts.ShakesSuppressed}}</td></tr>
<tr><th>Strobe starts</th><td>{{.Counts.StrobeStarts}}</td></tr>
<tr><th>S.O.S runs</th><td>{{.Counts.SOSRuns}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Strobe</th><td>{{.Config.StrobeMs}}ms</td></tr>
<tr><th>Shake threshold</th><td>{{.Config.ShakeThreshold}}g</td></tr>
<tr><th>Shake debounce</th><td>{{.Config.ShakeDebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var torchEl = document.getElementById("torch-state");
  var modeEl = document.getElementById("mode-state");
  var shakeEl = document.getElementById("shake-state");
  var intensityEl = document.getElementById("intensity-state");

  window.post = function(path, body) {
    fetch(path, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: body === undefined ? null : JSON.stringify(body)
    }).then(function(r) { return r.json(); }).then(apply).catch(function() {});
  };

  function apply(state) {
    torchEl.textContent = state.torch;
    torchEl.className = state.torch === "ON" ? "on" : "off";
    modeEl.textContent = state.mode;
    shakeEl.textContent = state.shake_enabled ? "enabled" : "disabled";
    intensityEl.textContent = Math.round(state.intensity * 100) + "%";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss:" : "ws:";
    var ws = new WebSocket(proto + "//" + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "disconnected");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "state") { apply(msg.data); }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
