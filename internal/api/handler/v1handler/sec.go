package v1handler

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"pagediff/internal/config"
	"pagediff/pkg/logger"
	"pagediff/pkg/serrors"
)

type contextKey string

// SubjectKey is the context key under which the authenticated token subject is stored.
const SubjectKey contextKey = "subject"

// SecHandlerOptions configures bearer token verification.
type SecHandlerOptions struct {
	// PublicKey is the PEM encoded RSA key verifying RS256 tokens.
	// Empty disables authentication.
	PublicKey string
}

// NewSecHandlerOptions constructs SecHandlerOptions from the provided application config.
func NewSecHandlerOptions(cfg *config.Config) *SecHandlerOptions {
	return &SecHandlerOptions{PublicKey: cfg.JWT.PublicKey}
}

// SecHandler authenticates requests with RS256 bearer tokens.
type SecHandler struct {
	key *rsa.PublicKey
}

// NewSecHandler parses the configured public key. A nil options value or an
// empty key yields a handler that lets every request through.
func NewSecHandler(opts *SecHandlerOptions) (*SecHandler, error) {
	if opts == nil || strings.TrimSpace(opts.PublicKey) == "" {
		return &SecHandler{}, nil
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(opts.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("could not parse RSA public key: %w", err)
	}

	return &SecHandler{key: key}, nil
}

// Enabled reports whether tokens are verified.
func (s *SecHandler) Enabled() bool { return s.key != nil }

// HandleBearerAuth verifies token and returns a context carrying its subject.
func (s *SecHandler) HandleBearerAuth(ctx context.Context, token string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return ctx, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ctx, serrors.With(serrors.ErrUnauthorized, "token has no subject")
	}

	ctx = context.WithValue(ctx, SubjectKey, claims.Subject)

	return logger.WithFields(ctx, zap.String("subject", claims.Subject)), nil
}

// GetSubjectFromContext returns the authenticated subject, or "" when the
// request was not authenticated.
func GetSubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(SubjectKey).(string)

	return subject
}

// Middleware rejects requests without a valid "Authorization: Bearer" token
// with 401. It is a pass-through when authentication is disabled.
func (s *SecHandler) Middleware(next http.Handler) http.Handler {
	if !s.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(ctx, w, Handler{}.NewError(ctx, serrors.With(serrors.ErrUnauthorized, "missing bearer token")))

			return
		}

		ctx, err := s.HandleBearerAuth(ctx, strings.TrimSpace(token))
		if err != nil {
			writeError(ctx, w, Handler{}.NewError(ctx, err))

			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
