package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSimulatedSourceTemplates(t *testing.T) {
	src := NewSimulatedSource("zk_sensor")
	src.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	tpl, err := src.Capture(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl != "zk_sensor_fingerprint_employee_42" {
		t.Fatalf("unexpected employee template %q", tpl)
	}
	tpl, _ = src.Capture(context.Background(), "")
	if tpl != "zk_sensor_fingerprint_kiosk_1700000000000" {
		t.Fatalf("unexpected kiosk template %q", tpl)
	}
}

func TestHTTPSourceCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("employeeId") == "missing" {
			_ = json.NewEncoder(w).Encode(map[string]string{"template": ""})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"template": "AQIDBA=="})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", time.Second)
	tpl, err := src.Capture(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl != "AQIDBA==" {
		t.Fatalf("unexpected template %q", tpl)
	}
	if _, err := src.Capture(context.Background(), "missing"); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed for empty template, got %v", err)
	}
}

func TestHTTPSourceReaderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPSource(srv.URL, time.Second).Capture(context.Background(), ""); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}
