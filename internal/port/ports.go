// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// PlaceFetcher retrieves business data from the places provider.
type PlaceFetcher interface {
	Search(ctx context.Context, apiKey, query, location string) ([]domain.Business, error)
	GetDetails(ctx context.Context, apiKey, placeID string) (*domain.Business, error)
}

// ReportGenerator produces recommendation content for a business report.
type ReportGenerator interface {
	Generate(ctx context.Context, apiKey string, biz *domain.Business) ([]domain.Recommendation, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// LeadStore defines all data operations for captured leads.
// Leads are immutable after insert: there is no update operation.
type LeadStore interface {
	Add(ctx context.Context, lead *domain.Lead) error
	Get(ctx context.Context, id string) (*domain.Lead, error)
	ListAll(ctx context.Context) ([]domain.Lead, error)
	ListByAgency(ctx context.Context, agencyID string) ([]domain.Lead, error)
	Delete(ctx context.Context, id string) error
	CountByAgency(ctx context.Context, agencyID string) (int64, error)
}

// SettingsStore persists agency-scoped settings envelopes as opaque JSON
// under a string key.
type SettingsStore interface {
	GetSetting(ctx context.Context, agencyID, key string) ([]byte, error)
	PutSetting(ctx context.Context, agencyID, key string, value []byte) error
	DeleteSetting(ctx context.Context, agencyID, key string) error
}

// TemplateStore persists email templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context, agencyID string) ([]domain.EmailTemplate, error)
	GetTemplate(ctx context.Context, agencyID, id string) (*domain.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tpl *domain.EmailTemplate) error
	DeleteTemplate(ctx context.Context, agencyID, id string) error
}

// Publisher broadcasts domain events to interested consumers.
// Publish must not block the caller even when no consumer is listening.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Subscriber receives domain events published on the local bus.
type Subscriber interface {
	Subscribe() (<-chan domain.Event, func())
}

// MailSender delivers a rendered email.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
