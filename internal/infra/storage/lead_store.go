package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// LeadStore persists leads in SQLite. Implements port.LeadStore.
type LeadStore struct {
	db *DB
}

// NewLeadStore returns a LeadStore backed by db.
func NewLeadStore(db *DB) *LeadStore {
	return &LeadStore{db: db}
}

// Add inserts a lead. The lead's ID must be set; inserting an existing ID
// is a storage error, never an overwrite.
func (s *LeadStore) Add(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == "" {
		return &domain.ErrValidation{Field: "id", Message: "lead ID is required"}
	}
	rec := toLeadRecord(lead)
	if err := s.db.gorm.WithContext(ctx).Create(rec).Error; err != nil {
		return &domain.ErrStorage{Op: "lead.add", Err: err}
	}
	return nil
}

// Get returns a single lead by ID.
func (s *LeadStore) Get(ctx context.Context, id string) (*domain.Lead, error) {
	var rec leadRecord
	err := s.db.gorm.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "lead.get", Err: err}
	}
	lead := fromLeadRecord(&rec)
	return &lead, nil
}

// ListAll returns every lead, newest first.
func (s *LeadStore) ListAll(ctx context.Context) ([]domain.Lead, error) {
	return s.list(ctx, s.db.gorm.WithContext(ctx), "lead.list")
}

// ListByAgency returns the leads belonging to one agency, newest first.
func (s *LeadStore) ListByAgency(ctx context.Context, agencyID string) ([]domain.Lead, error) {
	q := s.db.gorm.WithContext(ctx).Where("agency_id = ?", agencyID)
	return s.list(ctx, q, "lead.list_by_agency")
}

func (s *LeadStore) list(_ context.Context, q *gorm.DB, op string) ([]domain.Lead, error) {
	var recs []leadRecord
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, &domain.ErrStorage{Op: op, Err: err}
	}
	leads := make([]domain.Lead, 0, len(recs))
	for i := range recs {
		leads = append(leads, fromLeadRecord(&recs[i]))
	}
	return leads, nil
}

// Delete removes a lead by ID. Deleting an absent ID is not an error.
func (s *LeadStore) Delete(ctx context.Context, id string) error {
	if err := s.db.gorm.WithContext(ctx).Delete(&leadRecord{}, "id = ?", id).Error; err != nil {
		return &domain.ErrStorage{Op: "lead.delete", Err: err}
	}
	return nil
}

// CountByAgency returns the number of leads stored for an agency.
func (s *LeadStore) CountByAgency(ctx context.Context, agencyID string) (int64, error) {
	var n int64
	err := s.db.gorm.WithContext(ctx).Model(&leadRecord{}).
		Where("agency_id = ?", agencyID).Count(&n).Error
	if err != nil {
		return 0, &domain.ErrStorage{Op: "lead.count", Err: err}
	}
	return n, nil
}

// MarkEmailSent flags a lead as having received its follow-up email.
func (s *LeadStore) MarkEmailSent(ctx context.Context, id string) error {
	res := s.db.gorm.WithContext(ctx).Model(&leadRecord{}).
		Where("id = ?", id).Update("email_sent", true)
	if res.Error != nil {
		return &domain.ErrStorage{Op: "lead.mark_email_sent", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return nil
}

// CountSince returns the number of leads an agency captured at or after t.
func (s *LeadStore) CountSince(ctx context.Context, agencyID string, t time.Time) (int64, error) {
	var n int64
	err := s.db.gorm.WithContext(ctx).Model(&leadRecord{}).
		Where("agency_id = ? AND created_at >= ?", agencyID, t).Count(&n).Error
	if err != nil {
		return 0, &domain.ErrStorage{Op: "lead.count_since", Err: err}
	}
	return n, nil
}
