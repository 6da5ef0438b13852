package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/janisto/greeter/internal/http/greeting"
	"github.com/janisto/greeter/internal/platform/metrics"
	"github.com/janisto/greeter/internal/platform/respond"
)

func serve(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestRootReturnsGreeting(t *testing.T) {
	h := NewRouter(Options{Version: "test"})

	resp := serve(h, http.MethodGet, "/", map[string]string{chimiddleware.RequestIDHeader: "root-req"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != greeting.Message {
		t.Fatalf("unexpected body %q", body)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if id := resp.Header().Get(chimiddleware.RequestIDHeader); id != "root-req" {
		t.Fatalf("expected request ID echoed, got %q", id)
	}
	if resp.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers on root")
	}
}

func TestRootHeadIsServed(t *testing.T) {
	resp := serve(NewRouter(Options{}), http.MethodHead, "/", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for HEAD, got %d", resp.Code)
	}
}

func TestRootPostIsMethodNotAllowed(t *testing.T) {
	resp := serve(NewRouter(Options{}), http.MethodPost, "/", nil)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Fatalf("expected Allow to list GET and HEAD, got %q", allow)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %q", ct)
	}
	var p respond.Problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Status != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected problem status %d", p.Status)
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	resp := serve(NewRouter(Options{}), http.MethodGet, "/greet", nil)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %q", ct)
	}
}

func TestHealthAndDocsAreRegistered(t *testing.T) {
	h := NewRouter(Options{Version: "1.2.3"})

	if resp := serve(h, http.MethodGet, "/health", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", resp.Code)
	}

	resp := serve(h, http.MethodGet, "/openapi.json", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /openapi.json, got %d", resp.Code)
	}
	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	if doc.Info.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", doc.Info.Version)
	}
	for _, p := range []string{"/", "/health"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("expected %s in OpenAPI paths", p)
		}
	}
}

func TestMetricsObserveRequests(t *testing.T) {
	rec := metrics.NewRecorder()
	h := NewRouter(Options{Metrics: rec})

	for range 3 {
		serve(h, http.MethodGet, "/", nil)
	}

	metricsResp := serve(h, http.MethodGet, "/metrics", nil)
	if metricsResp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", metricsResp.Code)
	}

	n, err := testutil.GatherAndCount(rec.Registry(), "greeter_http_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n == 0 {
		t.Fatal("expected greeter_http_requests_total series")
	}
	if !strings.Contains(metricsResp.Body.String(), `route="/"`) {
		t.Fatalf("expected route=\"/\" label in exposition")
	}
}

func TestMetricsAbsentWithoutRecorder(t *testing.T) {
	if resp := serve(NewRouter(Options{}), http.MethodGet, "/metrics", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without recorder, got %d", resp.Code)
	}
}
