package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

func TestSettingsPutGetReplace(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	envelope := []byte(`{"state":{"credentials":{"googlePlaces":"pk"}}}`)
	if err := store.PutSetting(ctx, "agency-1", "gbp-optimizer-api-keys", envelope); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}

	got, err := store.GetSetting(ctx, "agency-1", "gbp-optimizer-api-keys")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if string(got) != string(envelope) {
		t.Errorf("got %s, want %s", got, envelope)
	}

	replaced := []byte(`{"state":{"credentials":{}}}`)
	if err := store.PutSetting(ctx, "agency-1", "gbp-optimizer-api-keys", replaced); err != nil {
		t.Fatalf("PutSetting replace: %v", err)
	}
	got, err = store.GetSetting(ctx, "agency-1", "gbp-optimizer-api-keys")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if string(got) != string(replaced) {
		t.Errorf("replace did not overwrite: got %s", got)
	}
}

func TestSettingsScopedByAgency(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	if err := store.PutSetting(ctx, "agency-1", "k", []byte("v1")); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}

	_, err := store.GetSetting(ctx, "agency-2", "k")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSettingsDelete(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	if err := store.PutSetting(ctx, "agency-1", "k", []byte("v")); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if err := store.DeleteSetting(ctx, "agency-1", "k"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, err := store.GetSetting(ctx, "agency-1", "k"); err == nil {
		t.Error("expected setting to be gone")
	}
}

func TestTemplateCRUD(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	tpl := &domain.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      "Report follow-up",
		Subject:   "Your report for {{businessName}}",
		Content:   "Hi, your score is {{score}}.",
		AgencyID:  "agency-1",
		CreatedAt: time.Now(),
	}
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	got, err := store.GetTemplate(ctx, "agency-1", tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Subject != tpl.Subject {
		t.Errorf("subject = %q", got.Subject)
	}

	tpl.Subject = "Updated subject"
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate update: %v", err)
	}
	got, err = store.GetTemplate(ctx, "agency-1", tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Subject != "Updated subject" {
		t.Errorf("subject = %q after update", got.Subject)
	}

	list, err := store.ListTemplates(ctx, "agency-1")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}

	if err := store.DeleteTemplate(ctx, "agency-1", tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if _, err := store.GetTemplate(ctx, "agency-1", tpl.ID); err == nil {
		t.Error("expected template to be gone")
	}
}
