// Package greeter exposes the greeting as an HTTP Cloud Function.
package greeter

import (
	"io"
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

// Message matches the body served by the main service at GET /.
const Message = "Hello World, I am at your service!"

func init() {
	functions.HTTP("Greeter", greet)
}

func greet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Message)
}
