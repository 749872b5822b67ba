package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/cache"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

func newScanner(places *mockPlaces, creds *service.CredentialService) *service.ScannerService {
	return service.NewScannerService(
		places,
		creds,
		cache.New[[]domain.Business](time.Minute),
		observability.NewMetrics(),
		4,
		zap.NewNop(),
	)
}

func configuredCreds(t *testing.T) *service.CredentialService {
	t.Helper()
	svc := service.NewCredentialService(newMockSettingsStore(), domain.CredentialSet{}, zap.NewNop())
	if _, err := svc.Update(context.Background(), "agency-1", domain.CredentialSet{GooglePlaces: "pk", OpenAI: "ok"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return svc
}

func TestSearchEnrichesResults(t *testing.T) {
	places := &mockPlaces{
		results: []domain.Business{
			{Name: "Cafe A", PlaceID: "a"},
			{Name: "Cafe B", PlaceID: "b"},
		},
		details: map[string]*domain.Business{
			"a": {Name: "Cafe A", PlaceID: "a", Rating: 4.5, Website: "https://a.test"},
		},
	}
	svc := newScanner(places, configuredCreds(t))

	results, err := svc.Search(context.Background(), "agency-1", nil, "cafe", "Springfield")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}

	var cafeA domain.Business
	for _, b := range results {
		if b.PlaceID == "a" {
			cafeA = b
		}
	}
	if cafeA.Website != "https://a.test" {
		t.Errorf("cafe A not enriched: %+v", cafeA)
	}
	// enrichment failure for B degrades to the bare search result
	for _, b := range results {
		if b.PlaceID == "b" && b.Name != "Cafe B" {
			t.Errorf("cafe B lost: %+v", b)
		}
	}
}

func TestSearchRequiresCredentials(t *testing.T) {
	unconfigured := service.NewCredentialService(newMockSettingsStore(), domain.CredentialSet{}, zap.NewNop())
	svc := newScanner(&mockPlaces{}, unconfigured)

	_, err := svc.Search(context.Background(), "agency-1", nil, "cafe", "")
	var cfg *domain.ErrConfiguration
	if !errors.As(err, &cfg) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestSearchUsesTokenKeys(t *testing.T) {
	places := &mockPlaces{results: []domain.Business{{Name: "Cafe"}}}
	unconfigured := service.NewCredentialService(newMockSettingsStore(), domain.CredentialSet{}, zap.NewNop())
	svc := newScanner(places, unconfigured)

	keys := &domain.CredentialSet{GooglePlaces: "token-pk", OpenAI: "token-ok"}
	if _, err := svc.Search(context.Background(), "agency-1", keys, "cafe", ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if places.lastKey != "token-pk" {
		t.Errorf("api key = %q, want token key", places.lastKey)
	}
}

func TestSearchValidatesQuery(t *testing.T) {
	svc := newScanner(&mockPlaces{}, configuredCreds(t))

	_, err := svc.Search(context.Background(), "agency-1", nil, "", "")
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSearchCaches(t *testing.T) {
	places := &mockPlaces{results: []domain.Business{{Name: "Cafe"}}}
	svc := newScanner(places, configuredCreds(t))
	ctx := context.Background()

	if _, err := svc.Search(ctx, "agency-1", nil, "cafe", ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := svc.Search(ctx, "agency-1", nil, "cafe", ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if places.searchCount != 1 {
		t.Errorf("upstream searches = %d, want 1 with warm cache", places.searchCount)
	}
}

func TestGetBusiness(t *testing.T) {
	places := &mockPlaces{details: map[string]*domain.Business{
		"place-1": {Name: "Example Cafe", PlaceID: "place-1", Rating: 4.2},
	}}
	svc := newScanner(places, configuredCreds(t))
	ctx := context.Background()

	biz, err := svc.GetBusiness(ctx, "agency-1", nil, "place-1")
	if err != nil {
		t.Fatalf("GetBusiness: %v", err)
	}
	if biz.Name != "Example Cafe" {
		t.Errorf("name = %q", biz.Name)
	}

	var nf *domain.ErrNotFound
	if _, err := svc.GetBusiness(ctx, "agency-1", nil, "missing"); !errors.As(err, &nf) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
