package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"plain", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer abc", "abc", false},
		{"padded", "  Bearer   abc  ", "abc", false},
		{"empty", "", "", true},
		{"scheme only", "Bearer ", "", true},
		{"wrong scheme", "Basic dXNlcjpwdw==", "", true},
		{"bare token", "abc.def.ghi", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	for _, p := range []string{"/v1/auth/login", "/v1/auth/google", "/healthz", "/metrics", "/"} {
		if !isPublicPath(p) {
			t.Fatalf("expected %s public", p)
		}
	}
	for _, p := range []string{"/v1/auth/me", "/v1/admin/info", "/v1/auth/logout", "/v1/auth/login/x"} {
		if isPublicPath(p) {
			t.Fatalf("expected %s protected", p)
		}
	}
}

func TestRequireRolesWithoutPrincipal(t *testing.T) {
	env := newTestEnv(t)
	gate := env.api.RequireRoles("admin")(okHandler())

	rr := httptest.NewRecorder()
	gate.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/info", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
	if code := errorCode(t, rr); code != "UNAUTHENTICATED" {
		t.Fatalf("expected UNAUTHENTICATED, got %s", code)
	}
}

func TestOptionsRequestsSkipAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/me", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected CORS preflight to bypass auth, got %d", rr.Code)
	}
}
