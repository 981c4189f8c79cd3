// Package console serves the embedded interactive demo page for the
// decision service.
package console

import (
	_ "embed"
	"net/http"
)

//go:embed console.html
var consoleHTML []byte

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(consoleHTML)
	})
}
