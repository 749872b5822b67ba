package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
)

// TemplateService manages email templates for an agency.
type TemplateService struct {
	store  port.TemplateStore
	logger *zap.Logger
}

// NewTemplateService creates a template service.
func NewTemplateService(store port.TemplateStore, logger *zap.Logger) *TemplateService {
	return &TemplateService{store: store, logger: logger}
}

// List returns an agency's templates.
func (s *TemplateService) List(ctx context.Context, agencyID string) ([]domain.EmailTemplate, error) {
	return s.store.ListTemplates(ctx, agencyID)
}

// Get returns one template.
func (s *TemplateService) Get(ctx context.Context, agencyID, id string) (*domain.EmailTemplate, error) {
	return s.store.GetTemplate(ctx, agencyID, id)
}

// Create validates and stores a new template.
func (s *TemplateService) Create(ctx context.Context, agencyID string, req *domain.SaveTemplateRequest) (*domain.EmailTemplate, error) {
	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if req.Subject == "" {
		return nil, &domain.ErrValidation{Field: "subject", Message: "subject is required"}
	}

	tpl := &domain.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Subject:   req.Subject,
		Content:   req.Content,
		AgencyID:  agencyID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("email template created",
		zap.String("template_id", tpl.ID),
		zap.String("agency_id", agencyID),
	)
	return tpl, nil
}

// Update modifies an existing template in place.
func (s *TemplateService) Update(ctx context.Context, agencyID, id string, req *domain.SaveTemplateRequest) (*domain.EmailTemplate, error) {
	tpl, err := s.store.GetTemplate(ctx, agencyID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		tpl.Name = req.Name
	}
	if req.Subject != "" {
		tpl.Subject = req.Subject
	}
	if req.Content != "" {
		tpl.Content = req.Content
	}
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete removes a template.
func (s *TemplateService) Delete(ctx context.Context, agencyID, id string) error {
	if _, err := s.store.GetTemplate(ctx, agencyID, id); err != nil {
		return err
	}
	return s.store.DeleteTemplate(ctx, agencyID, id)
}
