package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/mail"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

// ============================================================
// Leads — /v1/leads
// ============================================================

// captureLeadHandler stores a lead the client assembled itself, with the
// business snapshot and report from an earlier scan. The widget uses this
// when the visitor leaves their email after the report is on screen.
func captureLeadHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var req domain.CaptureLeadRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Source == "" {
			req.Source = SourceFromContext(ctx)
		}

		lead, err := leads.Capture(ctx, AgencyIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func listLeadsHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		agencyID := AgencyIDFromContext(ctx)
		list, err := leads.List(ctx, agencyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": list})
	}
}

func getLeadHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		lead, err := leads.Get(ctx, AgencyIDFromContext(ctx), leadID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func deleteLeadHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/leads/{leadId}")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		if err := leads.Delete(ctx, AgencyIDFromContext(ctx), leadID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func exportLeadsHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/export")
		defer span.End()

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)

		if err := leads.ExportCSV(ctx, AgencyIDFromContext(ctx), w); err != nil {
			logger.Error("csv export failed", zap.Error(err))
		}
	}
}

func dashboardStatsHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard/stats")
		defer span.End()

		stats, err := leads.Stats(ctx, AgencyIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ============================================================
// Emails — POST /v1/emails/send
// ============================================================

func sendEmailHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/emails/send")
		defer span.End()

		var req domain.SendEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := leads.SendEmail(ctx, AgencyIDFromContext(ctx), &req, mail.Render); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}
