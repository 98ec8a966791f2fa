package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/golang-jwt/jwt/v5"

	"poiAPI/internal/backend"
	"poiAPI/internal/logger"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenVerifier checks a bearer token and returns the caller's principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ClerkVerifier validates Clerk session JWTs. clerk.SetKey must be called first.
type ClerkVerifier struct{}

func (ClerkVerifier) Verify(ctx context.Context, token string) (string, error) {
	claims, err := clerkjwt.Verify(ctx, &clerkjwt.VerifyParams{Token: token})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// LocalVerifier validates HS256 tokens signed with a shared secret, for local
// development against a local replica.
type LocalVerifier struct {
	Secret []byte
}

func (v LocalVerifier) Verify(_ context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

type Authenticator struct {
	verifier TokenVerifier
	log      *logger.Logger
}

func NewAuthenticator(verifier TokenVerifier, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, log: log}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		principal, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			logger.FromContext(r.Context(), a.log).WithError(err).Warn("Token verification failed")
			respondWithError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(a.withCaller(r.Context(), principal, token)))
	})
}

// Optional attaches the caller identity when a valid token is present and
// otherwise lets the request through anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if principal, err := a.verifier.Verify(r.Context(), token); err == nil {
				r = r.WithContext(a.withCaller(r.Context(), principal, token))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) withCaller(ctx context.Context, principal, token string) context.Context {
	ctx = WithIdentity(ctx, &backend.Identity{Principal: principal, Token: token})
	return logger.NewContext(ctx, logger.FromContext(ctx, a.log).WithField("principal", principal))
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, identity *backend.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity extracts the caller identity from context
func GetIdentity(ctx context.Context) (*backend.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*backend.Identity)
	return identity, ok && identity != nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
