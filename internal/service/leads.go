package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
)

var leadsTracer = otel.Tracer("service/leads")

// leadCounter interface for the store's CountSince extension.
type leadCounter interface {
	CountSince(ctx context.Context, agencyID string, t time.Time) (int64, error)
}

// emailMarker interface for stores that track follow-up delivery.
type emailMarker interface {
	MarkEmailSent(ctx context.Context, leadID string) error
}

// LeadService owns the lead lifecycle: capture, listing, deletion, CSV
// export and templated follow-up email.
type LeadService struct {
	store     port.LeadStore
	templates port.TemplateStore
	publisher port.Publisher
	sender    port.MailSender
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLeadService creates a lead service. sender may be nil when SMTP is
// not configured; email operations then fail with ErrConfiguration.
func NewLeadService(store port.LeadStore, templates port.TemplateStore, publisher port.Publisher, sender port.MailSender, metrics *observability.Metrics, logger *zap.Logger) *LeadService {
	return &LeadService{
		store:     store,
		templates: templates,
		publisher: publisher,
		sender:    sender,
		metrics:   metrics,
		logger:    logger,
	}
}

// Capture validates and stores a new lead, then broadcasts lead.stored.
// The lead is immutable once stored; the report payload is persisted
// verbatim.
func (s *LeadService) Capture(ctx context.Context, agencyID string, req *domain.CaptureLeadRequest) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.Capture")
	defer span.End()
	span.SetAttributes(attribute.String("agency_id", agencyID))

	if agencyID == "" {
		return nil, &domain.ErrValidation{Field: "agency_id", Message: "agency is required"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, &domain.ErrValidation{Field: "email", Message: "a valid email address is required"}
	}
	if req.Business.Name == "" {
		return nil, &domain.ErrValidation{Field: "business", Message: "business snapshot is required"}
	}

	source := req.Source
	if source != domain.LeadSourceEmbed {
		source = domain.LeadSourceApp
	}

	lead := &domain.Lead{
		ID:                   uuid.NewString(),
		Email:                req.Email,
		BusinessName:         req.Business.Name,
		BusinessCategory:     req.Business.Category,
		BusinessAddress:      req.Business.Address,
		BusinessRating:       req.Business.Rating,
		BusinessReviewsCount: req.Business.ReviewsCount,
		BusinessClaimed:      req.Business.Claimed,
		BusinessPhotos:       req.Business.Photos,
		BusinessWebsite:      req.Business.Website,
		BusinessPhone:        req.Business.Phone,
		BusinessHours:        req.Business.Hours,
		ReportData:           req.ReportData,
		AgencyID:             agencyID,
		CreatedAt:            time.Now().UTC(),
		Source:               source,
		PlaceID:              req.Business.PlaceID,
	}

	if err := s.store.Add(ctx, lead); err != nil {
		return nil, err
	}

	s.metrics.IncrLeadCaptured(source)
	s.logger.Info("lead captured",
		zap.String("lead_id", lead.ID),
		zap.String("agency_id", agencyID),
		zap.String("source", source),
	)

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventLeadStored, lead))
	return lead, nil
}

// Get returns one lead, scoped to the agency that owns it.
func (s *LeadService) Get(ctx context.Context, agencyID, leadID string) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.Get")
	defer span.End()

	lead, err := s.store.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.AgencyID != agencyID {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	return lead, nil
}

// List returns an agency's leads, newest first.
func (s *LeadService) List(ctx context.Context, agencyID string) ([]domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.List")
	defer span.End()
	span.SetAttributes(attribute.String("agency_id", agencyID))

	return s.store.ListByAgency(ctx, agencyID)
}

// Delete removes one lead and broadcasts lead.deleted. Deleting a lead
// that belongs to another agency reads as not found.
func (s *LeadService) Delete(ctx context.Context, agencyID, leadID string) error {
	ctx, span := leadsTracer.Start(ctx, "LeadService.Delete")
	defer span.End()

	lead, err := s.store.Get(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.AgencyID != agencyID {
		return &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}

	if err := s.store.Delete(ctx, leadID); err != nil {
		return err
	}

	s.metrics.IncrLeadDeleted()
	s.logger.Info("lead deleted",
		zap.String("lead_id", leadID),
		zap.String("agency_id", agencyID),
	)

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventLeadDeleted, map[string]string{"id": leadID}))
	return nil
}

// csvHeader matches the dashboard export column layout.
var csvHeader = []string{
	"Email", "Business Name", "Category", "Address", "Rating",
	"Overall Score", "Date", "Source", "Email Sent",
}

// ExportCSV streams an agency's leads as CSV to w.
func (s *LeadService) ExportCSV(ctx context.Context, agencyID string, w io.Writer) error {
	ctx, span := leadsTracer.Start(ctx, "LeadService.ExportCSV")
	defer span.End()

	leads, err := s.store.ListByAgency(ctx, agencyID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range leads {
		lead := &leads[i]
		sent := "no"
		if lead.EmailSent {
			sent = "yes"
		}
		row := []string{
			lead.Email,
			lead.BusinessName,
			lead.BusinessCategory,
			lead.BusinessAddress,
			fmt.Sprintf("%g", lead.BusinessRating),
			fmt.Sprintf("%g", overallScore(lead.ReportData)),
			lead.CreatedAt.Format(time.RFC3339),
			lead.Source,
			sent,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Stats aggregates an agency's dashboard numbers.
func (s *LeadService) Stats(ctx context.Context, agencyID string) (*domain.DashboardStats, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.Stats")
	defer span.End()

	total, err := s.store.CountByAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	leads, err := s.store.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{
		TotalLeads: total,
		Usage:      s.metrics.GetUsageSnapshot(),
	}

	var scoreSum float64
	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	for i := range leads {
		if leads[i].CreatedAt.After(weekAgo) {
			stats.LeadsThisWeek++
		}
		if leads[i].EmailSent {
			stats.EmailsSent++
		}
		scoreSum += overallScore(leads[i].ReportData)
	}
	if len(leads) > 0 {
		stats.AverageScore = scoreSum / float64(len(leads))
	}

	if counter, ok := s.store.(leadCounter); ok {
		if n, err := counter.CountSince(ctx, agencyID, weekAgo); err == nil {
			stats.LeadsThisWeek = n
		}
	}
	return stats, nil
}

// SendEmail renders a stored template against a lead and delivers it.
func (s *LeadService) SendEmail(ctx context.Context, agencyID string, req *domain.SendEmailRequest, render func(string, map[string]string) string) error {
	ctx, span := leadsTracer.Start(ctx, "LeadService.SendEmail")
	defer span.End()

	if s.sender == nil {
		return &domain.ErrConfiguration{Message: "SMTP is not configured"}
	}

	lead, err := s.Get(ctx, agencyID, req.LeadID)
	if err != nil {
		return err
	}
	tpl, err := s.templates.GetTemplate(ctx, agencyID, req.TemplateID)
	if err != nil {
		return err
	}

	vars := map[string]string{
		"businessName": lead.BusinessName,
		"email":        lead.Email,
		"rating":       fmt.Sprintf("%g", lead.BusinessRating),
		"score":        fmt.Sprintf("%g", overallScore(lead.ReportData)),
	}
	for k, v := range req.Variables {
		vars[k] = v
	}

	subject := render(tpl.Subject, vars)
	body := render(tpl.Content, vars)

	if err := s.sender.Send(ctx, lead.Email, subject, body); err != nil {
		s.metrics.IncrExternalError("smtp")
		return err
	}

	if marker, ok := s.store.(emailMarker); ok {
		if err := marker.MarkEmailSent(ctx, lead.ID); err != nil {
			s.logger.Warn("failed to record email delivery", zap.Error(err))
		}
	}

	s.logger.Info("follow-up email sent",
		zap.String("lead_id", lead.ID),
		zap.String("template_id", tpl.ID),
	)
	return nil
}

// overallScore pulls the score out of the opaque report payload for
// display purposes only; the payload itself is never rewritten.
func overallScore(reportData json.RawMessage) float64 {
	if len(reportData) == 0 {
		return 0
	}
	var doc struct {
		OverallScore float64 `json:"overallScore"`
	}
	if err := json.Unmarshal(reportData, &doc); err != nil {
		return 0
	}
	return doc.OverallScore
}
