package decisionlog

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

func testEvent(id string) *Event {
	rec := scenario.New(scenario.KindCarVsPedestrian, false, 0.3, 0.6, 30)
	out := policy.Explain(ethics.ModeUtilitarian, rec)
	ev := NewEvent(SourceHTTP, rec, out, 3*time.Millisecond)
	if id != "" {
		ev.ID = id
	}
	return ev
}

func TestNewEventFields(t *testing.T) {
	rec := scenario.New(scenario.KindCarVsCar, true, 0.8, 0.2, 50)
	out := policy.Explain(ethics.ModeUtilitarian, rec)
	ev := NewEvent(SourceCLI, rec, out, 2500*time.Microsecond)

	if ev.Version != eventVersion {
		t.Fatalf("version = %q, want %q", ev.Version, eventVersion)
	}
	if ev.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if ev.Source != SourceCLI {
		t.Fatalf("source = %q, want %q", ev.Source, SourceCLI)
	}
	if ev.Decision != ethics.ActionBrake {
		t.Fatalf("decision = %q, want brake", ev.Decision)
	}
	if ev.Base != ethics.ActionSwerveLeft {
		t.Fatalf("base = %q, want the table action", ev.Base)
	}
	if len(ev.Overrides) != 1 || ev.Overrides[0] != policy.OverrideUniversalBrake {
		t.Fatalf("overrides = %v, want the universal brake", ev.Overrides)
	}
	if ev.LatencyMs != 2.5 {
		t.Fatalf("latency_ms = %v, want 2.5", ev.LatencyMs)
	}
	if ev.Scenario.Kind != scenario.KindCarVsCar {
		t.Fatalf("scenario kind = %q, want car_vs_car", ev.Scenario.Kind)
	}
}

func TestFileSinkWritesJSONL(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "decisions.jsonl")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("file sink: %v", err)
	}

	if err := sink.Deliver(context.Background(), testEvent("ev-1")); err != nil {
		t.Fatalf("deliver 1: %v", err)
	}
	if err := sink.Deliver(context.Background(), testEvent("ev-2")); err != nil {
		t.Fatalf("deliver 2: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal jsonl line: %v", err)
	}
	if decoded.ID != "ev-1" {
		t.Fatalf("expected id ev-1, got %s", decoded.ID)
	}
	if decoded.Decision != ethics.ActionSwerveLeft {
		t.Fatalf("expected decision swerve_left, got %s", decoded.Decision)
	}
}

func TestCSVSinkHeaderWrittenOnce(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "results", "decisions.csv")

	sink, err := NewCSVSink(path)
	if err != nil {
		t.Fatalf("csv sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), testEvent("")); err != nil {
		t.Fatalf("deliver 1: %v", err)
	}
	if err := sink.Deliver(context.Background(), testEvent("")); err != nil {
		t.Fatalf("deliver 2: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	// Reopening the same file must append rows without a second header.
	sink, err = NewCSVSink(path)
	if err != nil {
		t.Fatalf("reopen csv sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), testEvent("")); err != nil {
		t.Fatalf("deliver 3: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close reopened sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "scenario,mode,decision" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "car_vs_pedestrian,utilitarian,swerve_left" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestWebhookSinkHandlesNon2xx(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("fail"))
	}))

	sink, err := NewWebhookSink(srv.URL, map[string]string{"X-Test": "1"}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), testEvent("ev-1")); err == nil {
		t.Fatalf("expected non-2xx to return error")
	} else if !strings.Contains(err.Error(), "status") {
		t.Fatalf("error should mention status, got %v", err)
	}
}

func TestEmitterDropsWhenQueueFull(t *testing.T) {
	wait := make(chan struct{})
	sink := &blockingSink{wait: wait}
	em := NewEmitter(EmitterConfig{QueueSize: 1, Workers: 1, ShutdownTimeout: time.Second}, []Sink{sink}, zap.NewNop())

	ev := testEvent("ev-1")
	em.Emit(context.Background(), ev)
	em.Emit(context.Background(), ev)
	em.Emit(context.Background(), ev)

	metrics := em.MetricsSnapshot()
	if metrics.Dropped() == 0 {
		t.Fatalf("expected dropped events when queue is full")
	}

	close(wait)
	em.Close(context.Background())
}

func TestEmitterWebhookIntegration(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))

	sink, err := NewWebhookSink(srv.URL, nil, time.Second)
	if err != nil {
		t.Fatalf("webhook sink: %v", err)
	}
	em := NewEmitter(EmitterConfig{QueueSize: 8, Workers: 1, ShutdownTimeout: time.Second}, []Sink{sink}, zap.NewNop())
	defer em.Close(context.Background())

	for i := 0; i < 5; i++ {
		em.Emit(context.Background(), testEvent("integration"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		if len(received) >= 5 {
			mu.Unlock()
			break
		}
		mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for webhook events, got %d", len(received))
		}
		time.Sleep(20 * time.Millisecond)
	}

	metrics := em.MetricsSnapshot()
	if metrics.SinkSuccess(sink.Name()) == 0 {
		t.Fatalf("expected sink success counter to increase")
	}
	if metrics.Dropped() != 0 {
		t.Fatalf("did not expect dropped events, got %d", metrics.Dropped())
	}
}

type blockingSink struct {
	wait chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Deliver(context.Context, *Event) error {
	<-s.wait
	return nil
}

func (s *blockingSink) Close(context.Context) error {
	if s.wait != nil {
		select {
		case <-s.wait:
		default:
			close(s.wait)
		}
	}
	return nil
}

func newTestServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping: cannot open listener: %v", err)
	}
	srv := httptest.NewUnstartedServer(h)
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
