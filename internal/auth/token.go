package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken indicates the token failed validation. Expired, malformed
// and badly-signed tokens all surface as this single error.
var ErrInvalidToken = errors.New("auth: invalid token")

const defaultIssuer = "pmo-api"

// Claims are the session token payload. They are trusted as of issuance
// time only; role or active-state changes after issuance do not invalidate
// a live token. ResolveSession refreshes the live state per request.
type Claims struct {
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	IsSuperAdmin bool     `json:"is_superadmin"`
	jwt.RegisteredClaims
}

// TokenIssuer produces and validates signed, self-contained session tokens.
// Tokens are not persisted and cannot be revoked before expiry; that is an
// accepted design gap, not a defect.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs an issuer signing with HS256. A non-positive
// ttl falls back to the 8 hour default.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithNow overrides the issuer's time source. Test use only.
func (ti *TokenIssuer) WithNow(fn func() time.Time) *TokenIssuer {
	if fn != nil {
		ti.now = fn
	}
	return ti
}

// TTL returns the configured token lifetime.
func (ti *TokenIssuer) TTL() time.Duration { return ti.ttl }

// Issue signs a session token for the account.
func (ti *TokenIssuer) Issue(accountID, email string, roleNames []string, isSuperAdmin bool) (string, time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", time.Time{}, errors.New("auth: account id is required")
	}
	now := ti.now().UTC()
	expiresAt := now.Add(ti.ttl)
	claims := Claims{
		Email:        email,
		Roles:        roleNames,
		IsSuperAdmin: isSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies signature and expiry. All failure modes map to
// ErrInvalidToken so callers cannot distinguish expired from forged.
func (ti *TokenIssuer) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return ti.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != ti.issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
