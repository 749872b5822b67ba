package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

func TestCredentialsUpdatePersistsEnvelope(t *testing.T) {
	store := newMockSettingsStore()
	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	ctx := context.Background()

	creds := domain.CredentialSet{GooglePlaces: "pk", OpenAI: "ok"}
	if _, err := svc.Update(ctx, "agency-1", creds); err != nil {
		t.Fatalf("Update: %v", err)
	}

	raw, err := store.GetSetting(ctx, "agency-1", service.SettingsKey)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	want := `{"state":{"credentials":{"googlePlaces":"pk","openai":"ok"}}}`
	if string(raw) != want {
		t.Errorf("envelope = %s, want %s", raw, want)
	}

	got, err := svc.Get(ctx, "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != creds {
		t.Errorf("Get = %+v, want %+v", got, creds)
	}
}

func TestCredentialsUpdateMergesPartial(t *testing.T) {
	store := newMockSettingsStore()
	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Update(ctx, "agency-1", domain.CredentialSet{GooglePlaces: "pk"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	merged, err := svc.Update(ctx, "agency-1", domain.CredentialSet{OpenAI: "ok"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if merged.GooglePlaces != "pk" || merged.OpenAI != "ok" {
		t.Errorf("second update erased a field: got %+v", merged)
	}

	// The merged set is what gets persisted, not the raw request.
	raw, err := store.GetSetting(ctx, "agency-1", service.SettingsKey)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	want := `{"state":{"credentials":{"googlePlaces":"pk","openai":"ok"}}}`
	if string(raw) != want {
		t.Errorf("envelope = %s, want %s", raw, want)
	}

	got, err := svc.Get(ctx, "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GooglePlaces != "pk" || got.OpenAI != "ok" {
		t.Errorf("Get = %+v, want both keys set", got)
	}
}

func TestCredentialsGetReadsPersisted(t *testing.T) {
	store := newMockSettingsStore()
	envelope := []byte(`{"state":{"credentials":{"googlePlaces":"persisted-pk","openai":"persisted-ok"}}}`)
	_ = store.PutSetting(context.Background(), "agency-1", service.SettingsKey, envelope)

	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	got, err := svc.Get(context.Background(), "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GooglePlaces != "persisted-pk" || got.OpenAI != "persisted-ok" {
		t.Errorf("got %+v", got)
	}
}

func TestCredentialsResolvePrecedence(t *testing.T) {
	store := newMockSettingsStore()
	envelope := []byte(`{"state":{"credentials":{"googlePlaces":"persisted-pk"}}}`)
	_ = store.PutSetting(context.Background(), "agency-1", service.SettingsKey, envelope)

	defaults := domain.CredentialSet{GooglePlaces: "env-pk", OpenAI: "env-ok"}
	svc := service.NewCredentialService(store, defaults, zap.NewNop())
	ctx := context.Background()

	// persisted beats env; env fills the gap
	got, err := svc.Resolve(ctx, "agency-1", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.GooglePlaces != "persisted-pk" || got.OpenAI != "env-ok" {
		t.Errorf("got %+v", got)
	}

	// runtime update beats persisted
	if _, err := svc.Update(ctx, "agency-1", domain.CredentialSet{GooglePlaces: "runtime-pk", OpenAI: "runtime-ok"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = svc.Resolve(ctx, "agency-1", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.GooglePlaces != "runtime-pk" {
		t.Errorf("got %+v, want runtime key", got)
	}

	// token keys beat everything
	got, err = svc.Resolve(ctx, "agency-1", &domain.CredentialSet{GooglePlaces: "token-pk"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.GooglePlaces != "token-pk" || got.OpenAI != "runtime-ok" {
		t.Errorf("got %+v, want token key with runtime openai", got)
	}
}

func TestCredentialsCorruptEnvelopeReadsEmpty(t *testing.T) {
	store := newMockSettingsStore()
	_ = store.PutSetting(context.Background(), "agency-1", service.SettingsKey, []byte("{not json"))

	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	got, err := svc.Get(context.Background(), "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (domain.CredentialSet{}) {
		t.Errorf("got %+v, want empty set", got)
	}
}

func TestCredentialsRequireConfigured(t *testing.T) {
	svc := service.NewCredentialService(newMockSettingsStore(), domain.CredentialSet{}, zap.NewNop())

	_, err := svc.RequireConfigured(context.Background(), "agency-1", nil)
	var cfgErr *domain.ErrConfiguration
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}

	// keys carried by an embed token satisfy the requirement
	keys := &domain.CredentialSet{GooglePlaces: "pk", OpenAI: "ok"}
	got, err := svc.RequireConfigured(context.Background(), "agency-1", keys)
	if err != nil {
		t.Fatalf("RequireConfigured: %v", err)
	}
	if !got.Configured() {
		t.Errorf("got %+v", got)
	}
}

func TestCredentialsUpdateSurvivesPersistFailure(t *testing.T) {
	store := newMockSettingsStore()
	store.err = errors.New("disk full")
	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	ctx := context.Background()

	creds := domain.CredentialSet{GooglePlaces: "pk", OpenAI: "ok"}
	if _, err := svc.Update(ctx, "agency-1", creds); err != nil {
		t.Fatalf("Update should swallow persist failure, got %v", err)
	}

	got, err := svc.Get(ctx, "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != creds {
		t.Errorf("runtime copy lost: got %+v", got)
	}
}

func TestCredentialsResetDropsRuntimeOverride(t *testing.T) {
	store := newMockSettingsStore()
	envelope := []byte(`{"state":{"credentials":{"googlePlaces":"persisted-pk","openai":"persisted-ok"}}}`)
	_ = store.PutSetting(context.Background(), "agency-1", service.SettingsKey, envelope)

	svc := service.NewCredentialService(store, domain.CredentialSet{}, zap.NewNop())
	ctx := context.Background()

	// The persist fails, so the new keys live only in the runtime layer.
	store.err = errors.New("store down")
	if _, err := svc.Update(ctx, "agency-1", domain.CredentialSet{GooglePlaces: "runtime-pk", OpenAI: "runtime-ok"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	store.err = nil

	got, err := svc.Get(ctx, "agency-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GooglePlaces != "runtime-pk" {
		t.Fatalf("runtime override not in effect: %+v", got)
	}

	svc.Reset("agency-1")

	got, err = svc.Get(ctx, "agency-1")
	if err != nil {
		t.Fatalf("Get after reset: %v", err)
	}
	if got.GooglePlaces != "persisted-pk" {
		t.Errorf("reset should fall back to persisted keys, got %+v", got)
	}
}
