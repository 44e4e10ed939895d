package server

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/logger"
)

// requireToken rejects requests without a valid HS256 bearer token signed
// with the configured secret. The token subject is added to the request
// logger.
func (s *Server) requireToken(next http.Handler) http.Handler {
	secret := []byte(s.cfg.JWTSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(w, errs.New(errs.ErrKindPermissionDenied, "missing bearer token"))
			return
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			respondError(w, errs.Wrap(errs.ErrKindPermissionDenied, "invalid bearer token", err))
			return
		}

		log := logger.FromContext(r.Context()).With().Str("subject", claims.Subject).Logger()
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context())))
	})
}
