package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
)

var scanTracer = otel.Tracer("service/scanner")

// maxEnrich bounds how many search results get a details lookup.
const maxEnrich = 5

// ScannerService searches for businesses and fetches their full profiles.
type ScannerService struct {
	places      port.PlaceFetcher
	credentials *CredentialService
	cache       port.Cache[[]domain.Business]
	metrics     *observability.Metrics
	logger      *zap.Logger
	concurrency int
}

// NewScannerService creates a scanner service.
func NewScannerService(places port.PlaceFetcher, credentials *CredentialService, cache port.Cache[[]domain.Business], metrics *observability.Metrics, concurrency int, logger *zap.Logger) *ScannerService {
	if concurrency <= 0 {
		concurrency = maxEnrich
	}
	return &ScannerService{
		places:      places,
		credentials: credentials,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Search runs a text search and enriches the top results with profile
// details. Enrichment failures degrade to the bare search result rather
// than failing the whole search.
func (s *ScannerService) Search(ctx context.Context, agencyID string, tokenKeys *domain.CredentialSet, query, location string) (results []domain.Business, err error) {
	ctx, span := scanTracer.Start(ctx, "ScannerService.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("search", time.Since(start))
		s.metrics.IncrRequest(requestStatus(err))
	}()

	if query == "" {
		return nil, &domain.ErrValidation{Field: "query", Message: "query is required"}
	}

	creds, err := s.credentials.RequireConfigured(ctx, agencyID, tokenKeys)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("search:%s:%s:%s", agencyID, query, location)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("search")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("search")

	results, err = s.places.Search(ctx, creds.GooglePlaces, query, location)
	if err != nil {
		s.metrics.IncrExternalError("places")
		return nil, err
	}

	n := len(results)
	if n > maxEnrich {
		n = maxEnrich
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if results[i].PlaceID == "" {
				return nil
			}
			detail, err := s.places.GetDetails(gctx, creds.GooglePlaces, results[i].PlaceID)
			if err != nil {
				s.logger.Warn("details enrichment failed",
					zap.String("place_id", results[i].PlaceID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = *detail
			return nil
		})
	}
	_ = g.Wait()

	s.cache.Set(cacheKey, results)
	return results, nil
}

// GetBusiness fetches the full profile of one place.
func (s *ScannerService) GetBusiness(ctx context.Context, agencyID string, tokenKeys *domain.CredentialSet, placeID string) (biz *domain.Business, err error) {
	ctx, span := scanTracer.Start(ctx, "ScannerService.GetBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("place_id", placeID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("business", time.Since(start))
		s.metrics.IncrRequest(requestStatus(err))
	}()

	if placeID == "" {
		return nil, &domain.ErrValidation{Field: "place_id", Message: "place ID is required"}
	}

	creds, err := s.credentials.RequireConfigured(ctx, agencyID, tokenKeys)
	if err != nil {
		return nil, err
	}

	biz, err = s.places.GetDetails(ctx, creds.GooglePlaces, placeID)
	if err != nil {
		s.metrics.IncrExternalError("places")
		return nil, err
	}
	return biz, nil
}

// requestStatus maps an operation outcome onto the request counter label.
func requestStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
