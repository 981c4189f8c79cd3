// Package server exposes the decision engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dilasha-ghimire/EthicalAV/internal/auth"
	"github.com/dilasha-ghimire/EthicalAV/internal/config"
	"github.com/dilasha-ghimire/EthicalAV/internal/console"
	"github.com/dilasha-ghimire/EthicalAV/internal/decisionlog"
	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
	"github.com/dilasha-ghimire/EthicalAV/internal/telemetry"
)

// Server wraps the HTTP components for the decision service.
type Server struct {
	mux         *http.ServeMux
	cfg         *config.Config
	auth        *auth.Auth
	emitter     *decisionlog.Emitter
	telemetry   *telemetry.Provider
	logger      *zap.Logger
	defaultMode ethics.Mode
}

// New assembles the routes over the shared components. The emitter and
// telemetry provider may be inert, never nil.
func New(cfg *config.Config, authz *auth.Auth, em *decisionlog.Emitter, tel *telemetry.Provider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		auth:        authz,
		emitter:     em,
		telemetry:   tel,
		logger:      logger,
		defaultMode: ethics.ParseMode(cfg.Server.DefaultMode),
	}

	// Routes
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/decide", s.handleDecide)
	s.mux.HandleFunc("/v1/modes", s.handleModes)
	s.mux.Handle("/console", console.Handler())

	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP on addr until the context is canceled or the listener
// fails, then drains in-flight requests with a short timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("decision service listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("decision service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

// decideRequest deliberately types every scenario field as any: the
// engine promises a decision for whatever shows up on the wire, so the
// handler must not reject a payload the coercion layer can absorb.
type decideRequest struct {
	Name         any `json:"name"`
	ChildPresent any `json:"child_present"`
	LeftRisk     any `json:"left_risk"`
	RightRisk    any `json:"right_risk"`
	SpeedKph     any `json:"speed_kph"`
	Mode         any `json:"mode"`
}

type decideResponse struct {
	Decision  ethics.Action      `json:"decision"`
	Base      ethics.Action      `json:"base"`
	Mode      ethics.Mode        `json:"mode"`
	Kind      scenario.Kind      `json:"kind"`
	Risk      policy.RiskProfile `json:"risk"`
	Overrides []policy.Override  `json:"overrides"`
	RequestID string             `json:"request_id"`
}

type modesResponse struct {
	Modes   []ethics.Mode                                    `json:"modes"`
	Default ethics.Mode                                      `json:"default"`
	Base    map[ethics.Mode]map[scenario.Kind]ethics.Action `json:"base_policy"`
}

// basePolicy lays out the base table per mode, unknown row included.
func basePolicy() map[ethics.Mode]map[scenario.Kind]ethics.Action {
	kinds := append(scenario.Kinds(), scenario.KindUnknown)
	table := make(map[ethics.Mode]map[scenario.Kind]ethics.Action, len(ethics.Modes()))
	for _, mode := range ethics.Modes() {
		row := make(map[scenario.Kind]ethics.Action, len(kinds))
		for _, kind := range kinds {
			row[kind] = ethics.BaseDecision(mode, kind)
		}
		table[mode] = row
	}
	return table
}

type apiErrorBody struct {
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// authenticate enforces bearer auth on /v1 routes when enabled. It
// writes the 401 itself and reports whether the request may proceed.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) bool {
	if !s.cfg.Auth.Enabled {
		return true
	}
	apiKey, ok := parseBearerToken(r.Header.Get("Authorization"))
	if !ok || apiKey == "" {
		writeAPIError(w, http.StatusUnauthorized, "Invalid or missing API key", "authentication_error")
		return false
	}
	client, ok := s.auth.Lookup(apiKey)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "Invalid API key", "authentication_error")
		return false
	}
	s.logger.Debug("authenticated", zap.String("client", client.Name))
	return true
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authenticate(w, r) {
		return
	}

	var reqBody decideRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	mode := s.defaultMode
	if reqBody.Mode != nil {
		mode = ethics.ParseMode(coerceModeString(reqBody.Mode))
	}
	rec := scenario.FromRaw(reqBody.Name, reqBody.ChildPresent, reqBody.LeftRisk, reqBody.RightRisk, reqBody.SpeedKph)

	ctx, span := s.telemetry.Tracer().Start(r.Context(), "ethicalav.decide")
	start := time.Now()
	out := policy.Explain(mode, rec)
	dur := time.Since(start)
	span.SetAttributes(
		attribute.String("ethicalav.mode", string(out.Mode)),
		attribute.String("ethicalav.kind", string(out.Kind)),
		attribute.String("ethicalav.action", string(out.Final)),
	)
	span.End()

	durMs := float64(dur) / float64(time.Millisecond)
	ev := decisionlog.NewEvent(decisionlog.SourceHTTP, rec, out, dur)
	s.emitter.Emit(ctx, ev)
	s.telemetry.RecordDecision(string(out.Mode), string(out.Kind), string(out.Final), durMs, overrideNames(out.Overrides))

	s.logger.Debug("decision",
		zap.String("request_id", ev.ID),
		zap.String("kind", string(out.Kind)),
		zap.String("mode", string(out.Mode)),
		zap.String("decision", string(out.Final)),
	)

	overrides := out.Overrides
	if overrides == nil {
		overrides = []policy.Override{}
	}
	respBody := decideResponse{
		Decision:  out.Final,
		Base:      out.Base,
		Mode:      out.Mode,
		Kind:      out.Kind,
		Risk:      out.Risk,
		Overrides: overrides,
		RequestID: ev.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respBody); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authenticate(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(modesResponse{
		Modes:   ethics.Modes(),
		Default: s.defaultMode,
		Base:    basePolicy(),
	}); err != nil {
		s.logger.Warn("failed to write modes", zap.Error(err))
	}
}

// coerceModeString mirrors the scenario field coercion for the mode:
// non-string values are rendered to text and parsed like any other
// mode name.
func coerceModeString(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

func overrideNames(overrides []policy.Override) []string {
	if len(overrides) == 0 {
		return nil
	}
	out := make([]string, 0, len(overrides))
	for _, o := range overrides {
		out = append(out, string(o))
	}
	return out
}

// parseBearerToken extracts the token from an Authorization: Bearer header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// writeAPIError writes an error JSON body with a stable shape.
func writeAPIError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrorBody{
		Error: apiErrorDetail{
			Message: message,
			Type:    typ,
		},
	})
}
