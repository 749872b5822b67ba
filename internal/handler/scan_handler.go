package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

// ============================================================
// Scan — POST /v1/businesses/search, GET /v1/businesses/{placeId}
// ============================================================

func searchHandler(scanner *service.ScannerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/businesses/search")
		defer span.End()

		var req domain.SearchRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("query", req.Query))

		agencyID := AgencyIDFromContext(ctx)
		results, err := scanner.Search(ctx, agencyID, TokenKeysFromContext(ctx), req.Query, req.Location)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"businesses": results})
	}
}

func getBusinessHandler(scanner *service.ScannerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/businesses/{placeId}")
		defer span.End()

		placeID := chi.URLParam(r, "placeId")
		span.SetAttributes(attribute.String("place.id", placeID))

		agencyID := AgencyIDFromContext(ctx)
		biz, err := scanner.GetBusiness(ctx, agencyID, TokenKeysFromContext(ctx), placeID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, biz)
	}
}

// ============================================================
// Reports — POST /v1/reports
// ============================================================

// reportHandler runs the full scan flow: fetch the business, build the
// report, and capture a lead when the request carries an email.
func reportHandler(scanner *service.ScannerService, reports *service.ReportService, credentials *service.CredentialService, leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports")
		defer span.End()

		var req domain.ReportRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		agencyID := AgencyIDFromContext(ctx)
		tokenKeys := TokenKeysFromContext(ctx)

		biz, err := scanner.GetBusiness(ctx, agencyID, tokenKeys, req.PlaceID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		creds, err := credentials.RequireConfigured(ctx, agencyID, tokenKeys)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := reports.Build(ctx, creds.OpenAI, biz)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := map[string]any{
			"business": biz,
			"report":   report,
		}

		if req.Email != "" {
			reportData, err := json.Marshal(report)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			source := req.Source
			if source == "" {
				source = SourceFromContext(ctx)
			}
			lead, err := leads.Capture(ctx, agencyID, &domain.CaptureLeadRequest{
				Email:      req.Email,
				Business:   *biz,
				ReportData: reportData,
				Source:     source,
			})
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			resp["lead_id"] = lead.ID
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
