package google

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// OAuthExchanger drives the browser redirect flow: consent URL construction
// and authorization-code exchange. The resulting ID token still goes
// through the Verifier before any account work happens.
type OAuthExchanger struct {
	config *oauth2.Config
}

// NewOAuthExchanger configures the Google OAuth client used by the redirect
// flow.
func NewOAuthExchanger(clientID, clientSecret, redirectURL string) *OAuthExchanger {
	return &OAuthExchanger{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth.Endpoint,
		},
	}
}

// Configured reports whether client credentials are present.
func (e *OAuthExchanger) Configured() bool {
	return e != nil && e.config.ClientID != "" && e.config.ClientSecret != ""
}

// AuthCodeURL returns the consent-screen URL for the given anti-CSRF state.
func (e *OAuthExchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades an authorization code for the ID token Google delivers
// alongside the access token.
func (e *OAuthExchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("google token response carried no id_token")
	}
	return raw, nil
}
