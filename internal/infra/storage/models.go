package storage

import (
	"encoding/json"
	"time"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// leadRecord is the persisted shape of a lead. Structured list fields are
// stored as JSON text; the report payload is stored verbatim.
type leadRecord struct {
	ID                   string `gorm:"primaryKey"`
	Email                string `gorm:"not null"`
	BusinessName         string
	BusinessCategory     string
	BusinessAddress      string
	BusinessRating       float64
	BusinessReviewsCount int
	BusinessClaimed      bool
	BusinessPhotos       string
	BusinessWebsite      string
	BusinessPhone        string
	BusinessHours        string
	ReportData           string
	AgencyID             string    `gorm:"index:idx_leads_agency"`
	CreatedAt            time.Time `gorm:"index:idx_leads_created_at"`
	EmailSent            bool
	Source               string
	PlaceID              string
}

func (leadRecord) TableName() string { return "leads" }

type settingRecord struct {
	AgencyID  string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (settingRecord) TableName() string { return "settings" }

type templateRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Subject   string
	Content   string
	AgencyID  string `gorm:"index:idx_templates_agency"`
	CreatedAt time.Time
}

func (templateRecord) TableName() string { return "email_templates" }

func toLeadRecord(l *domain.Lead) *leadRecord {
	return &leadRecord{
		ID:                   l.ID,
		Email:                l.Email,
		BusinessName:         l.BusinessName,
		BusinessCategory:     l.BusinessCategory,
		BusinessAddress:      l.BusinessAddress,
		BusinessRating:       l.BusinessRating,
		BusinessReviewsCount: l.BusinessReviewsCount,
		BusinessClaimed:      l.BusinessClaimed,
		BusinessPhotos:       marshalJSON(l.BusinessPhotos),
		BusinessWebsite:      l.BusinessWebsite,
		BusinessPhone:        l.BusinessPhone,
		BusinessHours:        marshalJSON(l.BusinessHours),
		ReportData:           string(l.ReportData),
		AgencyID:             l.AgencyID,
		CreatedAt:            l.CreatedAt,
		EmailSent:            l.EmailSent,
		Source:               l.Source,
		PlaceID:              l.PlaceID,
	}
}

func fromLeadRecord(r *leadRecord) domain.Lead {
	lead := domain.Lead{
		ID:                   r.ID,
		Email:                r.Email,
		BusinessName:         r.BusinessName,
		BusinessCategory:     r.BusinessCategory,
		BusinessAddress:      r.BusinessAddress,
		BusinessRating:       r.BusinessRating,
		BusinessReviewsCount: r.BusinessReviewsCount,
		BusinessClaimed:      r.BusinessClaimed,
		BusinessWebsite:      r.BusinessWebsite,
		BusinessPhone:        r.BusinessPhone,
		AgencyID:             r.AgencyID,
		CreatedAt:            r.CreatedAt,
		EmailSent:            r.EmailSent,
		Source:               r.Source,
		PlaceID:              r.PlaceID,
	}
	if r.ReportData != "" {
		lead.ReportData = json.RawMessage(r.ReportData)
	}
	if r.BusinessPhotos != "" {
		_ = json.Unmarshal([]byte(r.BusinessPhotos), &lead.BusinessPhotos)
	}
	if r.BusinessHours != "" {
		_ = json.Unmarshal([]byte(r.BusinessHours), &lead.BusinessHours)
	}
	return lead
}

func toTemplateRecord(t *domain.EmailTemplate) *templateRecord {
	return &templateRecord{
		ID:        t.ID,
		Name:      t.Name,
		Subject:   t.Subject,
		Content:   t.Content,
		AgencyID:  t.AgencyID,
		CreatedAt: t.CreatedAt,
	}
}

func fromTemplateRecord(r *templateRecord) domain.EmailTemplate {
	return domain.EmailTemplate{
		ID:        r.ID,
		Name:      r.Name,
		Subject:   r.Subject,
		Content:   r.Content,
		AgencyID:  r.AgencyID,
		CreatedAt: r.CreatedAt,
	}
}

func marshalJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
