package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
	"github.com/gbp-optimizer/leadgen-api/internal/token"
)

// ============================================================
// Settings — /v1/settings/api-keys
// ============================================================

func getCredentialsHandler(credentials *service.CredentialService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/api-keys")
		defer span.End()

		creds, err := credentials.Get(ctx, AgencyIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"credentials": creds,
			"configured":  creds.Configured(),
		})
	}
}

func updateCredentialsHandler(credentials *service.CredentialService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings/api-keys")
		defer span.End()

		var req domain.UpdateCredentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		creds := domain.CredentialSet{GooglePlaces: req.GooglePlaces, OpenAI: req.OpenAI}
		merged, err := credentials.Update(ctx, AgencyIDFromContext(ctx), creds)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"credentials": merged,
			"configured":  merged.Configured(),
		})
	}
}

// ============================================================
// Embed tokens — POST /v1/embed/token
// ============================================================

func embedTokenHandler(codec *token.Codec, credentials *service.CredentialService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/embed/token")
		defer span.End()

		var req domain.EmbedTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		agencyID := AgencyIDFromContext(ctx)

		var keys domain.CredentialSet
		if req.IncludeKeys {
			resolved, err := credentials.Resolve(ctx, agencyID, nil)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			keys = resolved
		}

		encoded, expires, err := codec.Encode(agencyID, keys)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("embed token minted", zap.String("agency_id", agencyID))
		writeJSON(w, http.StatusOK, domain.EmbedTokenResponse{Token: encoded, Expires: expires})
	}
}
