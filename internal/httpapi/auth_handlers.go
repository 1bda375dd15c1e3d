package httpapi

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pmohq/pmo-api/internal/auth"
	"github.com/pmohq/pmo-api/internal/google"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleTokenRequest struct {
	IDToken string `json:"id_token"`
}

type roleDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Roles     []roleDTO `json:"roles"`
}

type sessionResponse struct {
	AccessToken string  `json:"access_token"`
	User        userDTO `json:"user"`
}

type profileResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AvatarURL    string    `json:"avatar_url"`
	Roles        []roleDTO `json:"roles"`
	IsSuperAdmin bool      `json:"is_superadmin"`
	Permissions  []string  `json:"permissions"`
}

func rolesDTO(roles []auth.Role) []roleDTO {
	out := make([]roleDTO, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleDTO{ID: r.ID, Name: r.Name})
	}
	return out
}

func sessionDTO(s auth.Session) sessionResponse {
	acct := s.Principal.Account
	return sessionResponse{
		AccessToken: s.Token,
		User: userDTO{
			ID:        acct.ID,
			Email:     acct.Email,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
			Roles:     rolesDTO(s.Principal.Roles),
		},
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	session, err := a.svc.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeLoginError(w, r, err)
		return
	}

	a.auditor.Event(r.Context(), "auth.login.issued",
		zap.String("account_id", session.Principal.Account.ID),
		zap.String("flow", "password"))
	writeJSON(w, http.StatusOK, sessionDTO(session))
}

// handleGoogle serves both halves of the browser flow entry point: GET
// redirects to the consent screen, POST accepts an ID token from a SPA
// that ran the handshake itself.
func (a *API) handleGoogle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.redirectToConsent(w, r)
	case http.MethodPost:
		a.handleGoogleToken(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

const oauthStateCookie = "pmo_oauth_state"

func (a *API) redirectToConsent(w http.ResponseWriter, r *http.Request) {
	if !a.oauth.Configured() {
		writeError(w, r, http.StatusNotImplemented, "GOOGLE_NOT_CONFIGURED")
		return
	}
	state := randomState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/v1/auth/google",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

func (a *API) handleGoogleToken(w http.ResponseWriter, r *http.Request) {
	var req googleTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST")
		return
	}
	profile, err := a.verifier.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "GOOGLE_TOKEN_INVALID")
		return
	}
	session, err := a.svc.LoginWithGoogle(r.Context(), externalProfile(profile))
	if err != nil {
		a.writeLoginError(w, r, err)
		return
	}
	a.auditor.Event(r.Context(), "auth.login.issued",
		zap.String("account_id", session.Principal.Account.ID),
		zap.String("flow", "google"))
	writeJSON(w, http.StatusOK, sessionDTO(session))
}

// handleGoogleCallback finishes the browser flow. Success and failure both
// redirect to the configured front end; the token or reason code travels
// as a query parameter and no body is written.
func (a *API) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.oauth.Configured() {
		writeError(w, r, http.StatusNotImplemented, "GOOGLE_NOT_CONFIGURED")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		a.redirectFrontend(w, r, url.Values{"error": {"GOOGLE_STATE_MISMATCH"}})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		a.redirectFrontend(w, r, url.Values{"error": {"GOOGLE_CODE_MISSING"}})
		return
	}

	rawIDToken, err := a.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		a.log.Warn("google code exchange failed", zap.Error(err))
		a.redirectFrontend(w, r, url.Values{"error": {"GOOGLE_EXCHANGE_FAILED"}})
		return
	}
	profile, err := a.verifier.VerifyIDToken(r.Context(), rawIDToken)
	if err != nil {
		a.redirectFrontend(w, r, url.Values{"error": {"GOOGLE_TOKEN_INVALID"}})
		return
	}

	session, err := a.svc.LoginWithGoogle(r.Context(), externalProfile(profile))
	if err != nil {
		if sso, ok := auth.AsSSOError(err); ok {
			a.redirectFrontend(w, r, url.Values{"error": {sso.Code}})
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.redirectFrontend(w, r, url.Values{"error": {"INVALID_CREDENTIALS"}})
			return
		}
		a.redirectFrontend(w, r, url.Values{"error": {"SERVICE_UNAVAILABLE"}})
		return
	}

	a.auditor.Event(r.Context(), "auth.login.issued",
		zap.String("account_id", session.Principal.Account.ID),
		zap.String("flow", "google"))
	a.redirectFrontend(w, r, url.Values{"token": {session.Token}})
}

func (a *API) redirectFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, a.frontendURL+"/auth/callback?"+params.Encode(), http.StatusFound)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED")
		return
	}
	acct := principal.Account
	perms := principal.Permissions
	if perms == nil {
		perms = []string{}
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:           acct.ID,
		Email:        acct.Email,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
		AvatarURL:    acct.AvatarURL,
		Roles:        rolesDTO(principal.Roles),
		IsSuperAdmin: principal.IsSuperAdmin,
		Permissions:  perms,
	})
}

// handleLogout is a stateless no-op. Tokens cannot be revoked server side;
// the endpoint still answers success so clients have a uniform flow.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_ = a.svc.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeLoginError maps login failures onto the wire. Every authentication
// rejection is the same INVALID_CREDENTIALS body; SSO pre-account checks
// keep their specific codes; store outages are never folded into
// invalid-credentials.
func (a *API) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	if sso, ok := auth.AsSSOError(err); ok {
		writeError(w, r, http.StatusBadRequest, sso.Code)
		return
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	case errors.Is(err, auth.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL")
	}
}

func externalProfile(p *google.Profile) auth.ExternalProfile {
	return auth.ExternalProfile{
		Subject:       p.Subject,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		FirstName:     p.GivenName,
		LastName:      p.FamilyName,
		AvatarURL:     p.AvatarURL,
	}
}

func randomState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
