package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
	"github.com/gbp-optimizer/leadgen-api/internal/token"
)

type contextKey string

const (
	agencyIDKey  contextKey = "agencyID"
	tokenKeysKey contextKey = "tokenKeys"
	sourceKey    contextKey = "leadSource"
)

// JWTAuthMiddleware validates Bearer tokens and injects the agency ID into
// context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), agencyIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmbedTokenMiddleware accepts requests carrying an embed token in the
// X-Embed-Token header (or ?token=). A valid token scopes the request to
// the token's agency and carries its credentials; a missing or invalid
// token falls through untouched, so routes stacked behind JWT auth still
// work for signed-in agencies.
func EmbedTokenMiddleware(codec *token.Codec, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoded := r.Header.Get("X-Embed-Token")
			if encoded == "" {
				encoded = r.URL.Query().Get("token")
			}
			if encoded == "" {
				next.ServeHTTP(w, r)
				return
			}

			decoded, ok := codec.Decode(encoded)
			if !ok {
				logger.Debug("embed token rejected", zap.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, agencyIDKey, decoded.AgencyID)
			ctx = context.WithValue(ctx, tokenKeysKey, &decoded.Keys)
			ctx = context.WithValue(ctx, sourceKey, domain.LeadSourceEmbed)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAgency rejects requests that resolved neither a JWT nor an embed
// token.
func RequireAgency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AgencyIDFromContext(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AgencyIDFromContext extracts the authenticated agency ID from context.
func AgencyIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(agencyIDKey).(string)
	return v
}

// TokenKeysFromContext extracts embed-token credentials, or nil when the
// request did not carry a token.
func TokenKeysFromContext(ctx context.Context) *domain.CredentialSet {
	v, _ := ctx.Value(tokenKeysKey).(*domain.CredentialSet)
	return v
}

// SourceFromContext reports the lead source implied by the request's
// authentication path.
func SourceFromContext(ctx context.Context) string {
	if v, _ := ctx.Value(sourceKey).(string); v != "" {
		return v
	}
	return domain.LeadSourceApp
}
