package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// HTTPError is an authentication failure ready to be written to the client.
type HTTPError struct {
	StatusCode int
	Message    string
}

type identityKey struct{}

// WithIdentity stores the verified caller identity in ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(string)
	return id, ok && id != ""
}

// Authenticator verifies HS256 bearer tokens. The token subject is the
// caller identity the market core compares against authorities and owners.
type Authenticator struct {
	secret []byte
	admins map[string]bool
}

// NewAuthenticator creates an authenticator for secret. Identities in
// admins may use operator endpoints.
func NewAuthenticator(secret string, admins []string) *Authenticator {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[a] = true
	}
	return &Authenticator{secret: []byte(secret), admins: set}
}

// IssueToken signs a token for subject valid for ttl.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken checks the request's bearer token and returns its subject.
func (a *Authenticator) ValidateToken(r *http.Request) (string, *HTTPError) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Bearer token required in Authorization header",
		}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid or expired token",
		}
	}
	if claims.Subject == "" {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Token has no subject",
		}
	}
	return claims.Subject, nil
}

// IsAdmin reports whether identity may use operator endpoints.
func (a *Authenticator) IsAdmin(identity string) bool {
	return a.admins[identity]
}

// RequireIdentity rejects requests without a valid token and stores the
// caller identity in the request context.
func (a *Authenticator) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, httpErr := a.ValidateToken(r)
		if httpErr != nil {
			writeError(w, httpErr)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin is RequireIdentity restricted to configured admins.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if !a.IsAdmin(identity) {
			writeError(w, &HTTPError{
				StatusCode: http.StatusForbidden,
				Message:    "Admin identity required",
			})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func writeError(w http.ResponseWriter, e *HTTPError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	w.Write([]byte(`{"error":"` + e.Message + `"}`))
}
