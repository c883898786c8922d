package handler

import (
	"html/template"
	"net/http"

	logger "github.com/sirupsen/logrus"
)

var indexPage = template.Must(template.New("index").Parse(`<html>
<head><title>SMA Crossover Trader</title></head>
<body style="font-family:sans-serif;">
  <h1>SMA Crossover Trader ({{.Symbol}})</h1>
  <p>Available endpoints:</p>
  <ul>
    <li><b>GET</b> <code>/health</code></li>
    <li><b>GET</b> <code>/trade</code> (control panel)</li>
    <li><b>POST</b> <code>/api/trade/start</code></li>
    <li><b>POST</b> <code>/api/trade/stop</code></li>
    <li><b>GET</b> <code>/api/trade/status</code></li>
    <li><b>GET</b> <code>/api/trade/stats</code></li>
    <li><b>GET</b> <code>/api/trade/stream</code> (websocket)</li>
    <li><b>GET</b> <code>/metrics</code></li>
  </ul>
</body>
</html>
`))

var tradePage = template.Must(template.New("trade").Parse(`<html>
<head>
  <title>Trading Control Panel</title>
  <style>
    body { font-family: sans-serif; }
    button { margin: 0.5em; padding: 0.5em 1em; font-size: 1em; }
    #result { margin-top: 1em; }
  </style>
</head>
<body>
  <h1>Trading Control Panel ({{.Symbol}})</h1>
  <button onclick="call('POST', '/api/trade/start')">Start Trading</button>
  <button onclick="call('GET', '/api/trade/status')">Get Status</button>
  <button onclick="call('GET', '/api/trade/stats')">Statistics</button>
  <button onclick="call('POST', '/api/trade/stop')">Stop Trading</button>
  <div id="result"></div>
  <h2>Live status</h2>
  <pre id="live">connecting...</pre>
  <script>
  function call(method, path) {
    fetch(path, {method: method}).then(r => r.json()).then(d => show('result', d));
  }
  function show(id, d) {
    document.getElementById(id).innerHTML = '<pre>' + JSON.stringify(d, null, 2) + '</pre>';
  }
  const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  const ws = new WebSocket(proto + location.host + '/api/trade/stream');
  ws.onmessage = e => show('live', JSON.parse(e.data));
  ws.onclose = () => { document.getElementById('live').textContent = 'disconnected'; };
  </script>
  <a href="/">Back to Home</a>
</body>
</html>
`))

type pageData struct {
	Symbol string
}

func renderPage(tmpl *template.Template, symbol string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, pageData{Symbol: symbol}); err != nil {
			logger.WithError(err).WithField("page", tmpl.Name()).Error("failed to render page")
		}
	}
}

func IndexHandler(symbol string) http.HandlerFunc {
	return renderPage(indexPage, symbol)
}

// TradePageHandler serves the browser control panel for the trade API.
func TradePageHandler(symbol string) http.HandlerFunc {
	return renderPage(tradePage, symbol)
}
