package auth

import "testing"

func TestAuthorize(t *testing.T) {
	holder := Principal{Roles: []Role{{ID: "r1", Name: "encoder"}, {ID: "r2", Name: "viewer"}}}
	super := Principal{IsSuperAdmin: true}
	nobody := Principal{}

	cases := []struct {
		name     string
		required []string
		p        Principal
		want     bool
	}{
		{"empty requirement allows holder", nil, holder, true},
		{"empty requirement allows zero principal", nil, nobody, true},
		{"matching role allows", []string{"encoder"}, holder, true},
		{"one match among many suffices", []string{"admin", "viewer"}, holder, true},
		{"no intersection denies", []string{"admin"}, holder, false},
		{"superadmin bypasses unheld roles", []string{"admin", "finance"}, super, true},
		{"no roles at all denies", []string{"admin"}, nobody, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorize(tc.required, tc.p); got != tc.want {
				t.Fatalf("Authorize(%v) = %v, want %v", tc.required, got, tc.want)
			}
		})
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{Roles: []Role{{ID: "r1", Name: "encoder"}}}
	if !p.HasRole("encoder") {
		t.Fatalf("expected role to be found")
	}
	if p.HasRole("admin") {
		t.Fatalf("unexpected role")
	}
}
