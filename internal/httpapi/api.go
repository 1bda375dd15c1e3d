// Package httpapi exposes the authentication core over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pmohq/pmo-api/internal/audit"
	"github.com/pmohq/pmo-api/internal/auth"
	"github.com/pmohq/pmo-api/internal/google"
	"github.com/pmohq/pmo-api/internal/obs"
)

// ReadyProbe checks backing-store readiness for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// IDTokenVerifier validates a Google ID token into a profile. Satisfied by
// *google.Verifier.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*google.Profile, error)
}

// Options collects the collaborators the HTTP layer needs.
type Options struct {
	Auth        *auth.Service
	Verifier    IDTokenVerifier
	OAuth       *google.OAuthExchanger
	Auditor     *audit.Auditor
	Logger      *zap.Logger
	ReadyProbe  ReadyProbe
	FrontendURL string
	Version     string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	svc         *auth.Service
	verifier    IDTokenVerifier
	oauth       *google.OAuthExchanger
	auditor     *audit.Auditor
	log         *zap.Logger
	readyProbe  ReadyProbe
	frontendURL string
	version     string
}

// New wires routes. Role requirements are declared here, per route, and
// evaluated by the central gate; handlers never re-check roles themselves.
func New(opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &API{
		mux:         http.NewServeMux(),
		svc:         opts.Auth,
		verifier:    opts.Verifier,
		oauth:       opts.OAuth,
		auditor:     opts.Auditor,
		log:         log,
		readyProbe:  opts.ReadyProbe,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		version:     opts.Version,
	}
	if a.auditor == nil {
		a.auditor = audit.NewAuditor(log)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/google", a.handleGoogle)
	a.mux.HandleFunc("/v1/auth/google/callback", a.handleGoogleCallback)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.Handle("/v1/auth/me", a.RequireRoles()(http.HandlerFunc(a.handleMe)))

	// Admin-only surface; the role requirement lives here, not in the
	// handler.
	a.mux.Handle("/v1/admin/info", a.RequireRoles("admin")(http.HandlerFunc(a.Info)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = Logging(a.log)(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pmo-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "pmo-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode string) {
	payload := map[string]any{
		"error": errCode,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}
