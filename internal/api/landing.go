package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PDF Chat Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; display: flex; justify-content: center; padding-top: 10vh; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2rem; }
  h1 { font-size: 1.5rem; margin: 0 0 0.5rem; }
  p { color: #94a3b8; }
  table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
  td { padding: 0.35rem 0; vertical-align: top; }
  td:first-child { font-family: "SF Mono", Menlo, monospace; color: #a5b4fc; white-space: nowrap; padding-right: 1.5rem; }
</style>
</head>
<body>
<div class="card">
  <h1>PDF Chat Server</h1>
  <p>Upload PDFs, then ask questions answered from their pages.</p>
  <table>
    <tr><td>POST /api/upload</td><td>Upload a PDF (multipart field <code>file</code>)</td></tr>
    <tr><td>GET /api/documents</td><td>List ingested documents</td></tr>
    <tr><td>GET /api/documents/{id}/pdf</td><td>Download a stored PDF</td></tr>
    <tr><td>POST /api/chat</td><td>Ask a question about a document</td></tr>
    <tr><td>GET /health</td><td>Vector store health</td></tr>
    <tr><td>GET /metrics</td><td>Prometheus metrics</td></tr>
    <tr><td>/mcp</td><td>MCP Streamable HTTP</td></tr>
  </table>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
