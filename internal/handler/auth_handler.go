package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

// ============================================================
// Auth — POST /v1/auth/login, /logout, GET /v1/auth/session
// ============================================================

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := authSvc.Login(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func logoutHandler(authSvc *service.AuthService, credentials *service.CredentialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		authSvc.Logout(ctx)
		// Runtime key overrides live for the session only.
		credentials.Reset(AgencyIDFromContext(ctx))
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

func sessionHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auth/session")
		defer span.End()

		// A returning client may present its stored token to resolve
		// straight to authenticated.
		resp := domain.SessionResponse{State: authSvc.Restore(ctx, bearerToken(r))}
		if resp.State == domain.SessionAuthenticated {
			agency := service.DemoAgency
			resp.Agency = &agency
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// bearerToken extracts the Authorization bearer value, or "" when the
// header is absent or malformed.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
