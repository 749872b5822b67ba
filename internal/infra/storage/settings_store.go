package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// SettingsStore persists agency-scoped settings envelopes and email
// templates. Implements port.SettingsStore and port.TemplateStore.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore returns a SettingsStore backed by db.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetSetting returns the raw value stored under key for an agency.
func (s *SettingsStore) GetSetting(ctx context.Context, agencyID, key string) ([]byte, error) {
	var rec settingRecord
	err := s.db.gorm.WithContext(ctx).
		First(&rec, "agency_id = ? AND key = ?", agencyID, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "setting", ID: key}
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "setting.get", Err: err}
	}
	return []byte(rec.Value), nil
}

// PutSetting stores value under key for an agency, replacing any prior value.
func (s *SettingsStore) PutSetting(ctx context.Context, agencyID, key string, value []byte) error {
	rec := settingRecord{
		AgencyID:  agencyID,
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	err := s.db.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agency_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return &domain.ErrStorage{Op: "setting.put", Err: err}
	}
	return nil
}

// DeleteSetting removes key for an agency. Absent keys are not an error.
func (s *SettingsStore) DeleteSetting(ctx context.Context, agencyID, key string) error {
	err := s.db.gorm.WithContext(ctx).
		Delete(&settingRecord{}, "agency_id = ? AND key = ?", agencyID, key).Error
	if err != nil {
		return &domain.ErrStorage{Op: "setting.delete", Err: err}
	}
	return nil
}

// ListTemplates returns an agency's email templates, newest first.
func (s *SettingsStore) ListTemplates(ctx context.Context, agencyID string) ([]domain.EmailTemplate, error) {
	var recs []templateRecord
	err := s.db.gorm.WithContext(ctx).
		Where("agency_id = ?", agencyID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, &domain.ErrStorage{Op: "template.list", Err: err}
	}
	out := make([]domain.EmailTemplate, 0, len(recs))
	for i := range recs {
		out = append(out, fromTemplateRecord(&recs[i]))
	}
	return out, nil
}

// GetTemplate returns one of an agency's templates by ID.
func (s *SettingsStore) GetTemplate(ctx context.Context, agencyID, id string) (*domain.EmailTemplate, error) {
	var rec templateRecord
	err := s.db.gorm.WithContext(ctx).
		First(&rec, "agency_id = ? AND id = ?", agencyID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "email template", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "template.get", Err: err}
	}
	tpl := fromTemplateRecord(&rec)
	return &tpl, nil
}

// SaveTemplate inserts or replaces a template.
func (s *SettingsStore) SaveTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	if tpl.ID == "" {
		return &domain.ErrValidation{Field: "id", Message: "template ID is required"}
	}
	rec := toTemplateRecord(tpl)
	err := s.db.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "subject", "content"}),
	}).Create(rec).Error
	if err != nil {
		return &domain.ErrStorage{Op: "template.save", Err: err}
	}
	return nil
}

// DeleteTemplate removes one of an agency's templates.
func (s *SettingsStore) DeleteTemplate(ctx context.Context, agencyID, id string) error {
	err := s.db.gorm.WithContext(ctx).
		Delete(&templateRecord{}, "agency_id = ? AND id = ?", agencyID, id).Error
	if err != nil {
		return &domain.ErrStorage{Op: "template.delete", Err: err}
	}
	return nil
}
