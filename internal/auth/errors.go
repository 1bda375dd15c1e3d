package auth

import "errors"

var (
	// ErrInvalidCredentials covers every password-login rejection cause:
	// unknown email, wrong password, locked, inactive, SSO-only. Callers
	// must never be able to tell the causes apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUnauthenticated is returned when a structurally valid token no
	// longer maps to a live, active account.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden is returned for an authenticated caller without the
	// required roles.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound    = errors.New("auth: not found")
	ErrConflict    = errors.New("auth: already exists")
	ErrUnavailable = errors.New("auth: service unavailable")
)

// SSO rejection codes. These fire before any account lookup and leak no
// account-existence information, so they stay specific.
const (
	SSOCodeNoEmail          = "GOOGLE_NO_EMAIL"
	SSOCodeEmailNotVerified = "GOOGLE_EMAIL_NOT_VERIFIED"
	SSOCodeDomainNotAllowed = "GOOGLE_DOMAIN_NOT_ALLOWED"
)

// SSOError is an identity-provider-side rejection carrying its reason code.
type SSOError struct {
	Code string
}

func (e *SSOError) Error() string { return "auth: sso rejected: " + e.Code }

// AsSSOError unwraps err into an *SSOError if it is one.
func AsSSOError(err error) (*SSOError, bool) {
	var sso *SSOError
	if errors.As(err, &sso) {
		return sso, true
	}
	return nil, false
}
