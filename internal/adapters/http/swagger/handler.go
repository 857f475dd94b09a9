package swagger

import (
	"context"
	"net/http"
)

// Register attaches the API docs routes to mux:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  embedded document
//	GET /openapi.json  the same document as JSON
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("swagger: nil mux")
	}

	// The document is embedded, so a conversion failure is a build defect.
	asJSON, err := openAPIJSON()
	if err != nil {
		panic(err)
	}

	mux.HandleFunc("GET /api-docs", serve("text/html; charset=utf-8", []byte(redocPage)))
	mux.HandleFunc("GET /openapi.yaml", serve("application/yaml; charset=utf-8", OpenAPI))
	mux.HandleFunc("GET /openapi.json", serve("application/json; charset=utf-8", asJSON))
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}
}

const redocPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Roster Ratings API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
