package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/infra/logging"
)

// ServiceClaims identify the platform backend calling the link and notify routes.
type ServiceClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// ServiceAuth verifies HS256 bearer tokens minted with the shared API secret.
type ServiceAuth struct {
	secret []byte
	log    *zerolog.Logger
}

func NewServiceAuth(secret string, logger *zerolog.Logger) *ServiceAuth {
	compLog := logger.With().Str("component", "ServiceAuth").Logger()
	return &ServiceAuth{secret: []byte(secret), log: &compLog}
}

// Mint signs a token for subject valid for ttl. Used by the platform side and tests.
func (a *ServiceAuth) Mint(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Scope: "notifier",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *ServiceAuth) ParseFromRequest(r *http.Request) (*ServiceClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *ServiceAuth) parse(tok string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware rejects requests without a valid service token.
func (a *ServiceAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			logging.With(r.Context(), a.log).Debug().Err(err).Msg("service auth rejected")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"a valid service token is required"}`))
			return
		}
		ctx := logging.WithUserID(r.Context(), "svc:"+claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
