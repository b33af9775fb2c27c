// Package auth resolves the ledger owner of each request. Tokens are only
// verified here; issuing them is left to an external identity provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"fintrack/internal/log"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderOwnerID carries the owner in header mode, typically set by a
// trusted gateway.
const HeaderOwnerID = "X-Owner-ID"

const maxOwnerIDLength = 128

type contextKey struct{}

var (
	errMissingCredentials = errors.New("missing credentials")
	errInvalidOwner       = errors.New("invalid owner id")
)

// Authenticator extracts an owner id from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// JWTAuthenticator verifies HS256 bearer tokens and uses the subject claim
// as owner id.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errMissingCredentials
	}

	var claims jwt.RegisteredClaims
	if _, err := a.parser.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return "", err
	}
	return checkOwner(claims.Subject)
}

// HeaderAuthenticator trusts the X-Owner-ID header.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(HeaderOwnerID))
	if owner == "" {
		return "", errMissingCredentials
	}
	return checkOwner(owner)
}

func checkOwner(owner string) (string, error) {
	if owner == "" || len(owner) > maxOwnerIDLength || !utf8.ValidString(owner) {
		return "", errInvalidOwner
	}
	return owner, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the owner
// id in the context of the others.
func Middleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := a.Authenticate(r)
			if err != nil {
				log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(),
					"Authentication failed",
					log.FieldPath, r.URL.Path,
					log.FieldError, err.Error())

				w.Header().Set("Content-Type", "application/json")
				if _, ok := a.(*JWTAuthenticator); ok {
					w.Header().Set("WWW-Authenticate", `Bearer realm="fintrack"`)
				}
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			ctx := WithOwner(r.Context(), owner)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldOwnerID, owner))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, contextKey{}, owner)
}

// OwnerFromContext returns the owner stored by Middleware.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(contextKey{}).(string)
	return owner, ok && owner != ""
}
