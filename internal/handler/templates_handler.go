package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

// ============================================================
// Email templates — /v1/email-templates
// ============================================================

func listTemplatesHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/email-templates")
		defer span.End()

		list, err := templates.List(ctx, AgencyIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"templates": list})
	}
}

func getTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/email-templates/{templateId}")
		defer span.End()

		tpl, err := templates.Get(ctx, AgencyIDFromContext(ctx), chi.URLParam(r, "templateId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func createTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/email-templates")
		defer span.End()

		var req domain.SaveTemplateRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tpl, err := templates.Create(ctx, AgencyIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tpl)
	}
}

func updateTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/email-templates/{templateId}")
		defer span.End()

		var req domain.SaveTemplateRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tpl, err := templates.Update(ctx, AgencyIDFromContext(ctx), chi.URLParam(r, "templateId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func deleteTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/email-templates/{templateId}")
		defer span.End()

		if err := templates.Delete(ctx, AgencyIDFromContext(ctx), chi.URLParam(r, "templateId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
