package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
)

var reportTracer = otel.Tracer("service/report")

// ReportService assembles the scored optimization report for a business.
// Scoring is deterministic from the business snapshot; the LLM only
// contributes extra recommendations and its failure degrades the report
// instead of failing it.
type ReportService struct {
	generator port.ReportGenerator
	cache     port.Cache[*domain.BusinessReport]
	metrics   *observability.Metrics
	logger    *zap.Logger
	group     singleflight.Group
}

// NewReportService creates a report service.
func NewReportService(generator port.ReportGenerator, cache port.Cache[*domain.BusinessReport], metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// Build produces the report for biz. Concurrent builds for the same place
// are collapsed into one.
func (s *ReportService) Build(ctx context.Context, openAIKey string, biz *domain.Business) (_ *domain.BusinessReport, err error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Build")
	defer span.End()
	span.SetAttributes(attribute.String("business.name", biz.Name))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("report", time.Since(start))
		s.metrics.IncrRequest(requestStatus(err))
	}()

	key := biz.PlaceID
	if key == "" {
		key = biz.Name + "|" + biz.Address
	}

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("report")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("report")

	result, err, _ := s.group.Do(key, func() (any, error) {
		report := Assemble(biz)

		extra, err := s.generator.Generate(ctx, openAIKey, biz)
		if err != nil {
			s.metrics.IncrExternalError("openai")
			s.logger.Warn("llm recommendations unavailable",
				zap.String("business", biz.Name),
				zap.Error(err),
			)
		} else if len(extra) > 0 && len(report.Sections) > 0 {
			report.Sections[0].Recommendations = append(report.Sections[0].Recommendations, extra...)
		}

		s.cache.Set(key, report)
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.BusinessReport), nil
}

// Assemble derives the deterministic report skeleton from the snapshot:
// completeness counts website, phone and hours; the overall score averages
// the rating-derived score with completeness.
func Assemble(biz *domain.Business) *domain.BusinessReport {
	present := 0
	missing := []string{}
	for _, elem := range []struct {
		name string
		ok   bool
	}{
		{"website", biz.Website != ""},
		{"phone", biz.Phone != ""},
		{"hours", len(biz.Hours) > 0},
	} {
		if elem.ok {
			present++
		} else {
			missing = append(missing, elem.name)
		}
	}
	completeness := float64(present) / 3 * 100
	ratingScore := biz.Rating * 20

	report := &domain.BusinessReport{
		OverallScore: math.Round(ratingScore+completeness) / 2,
		Sections: []domain.ReportSection{
			{
				Title:           "Profile Completeness",
				Score:           int(math.Round(completeness)),
				Priority:        completenessPriority(completeness),
				Recommendations: missingElementRecommendations(missing),
			},
			{
				Title:    "Customer Reviews",
				Score:    int(math.Round(ratingScore)),
				Priority: ratingPriority(biz.Rating),
				Recommendations: []domain.Recommendation{
					{
						Action:  "Improve review management",
						Details: "Actively manage and respond to customer reviews to improve rating and engagement.",
						Impact:  domain.PriorityHigh,
						Effort:  "medium",
						Implementation: []string{
							"Set up review monitoring",
							"Respond to all reviews within 24 hours",
							"Address negative feedback professionally",
							"Encourage satisfied customers to leave reviews",
						},
					},
				},
			},
		},
		Summary: buildSummary(biz, completeness),
	}
	return report
}

func missingElementRecommendations(missing []string) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(missing))
	for _, elem := range missing {
		recs = append(recs, domain.Recommendation{
			Action:  fmt.Sprintf("Add %s information", elem),
			Details: fmt.Sprintf("Your business profile is missing %s information which is crucial for visibility and customer trust.", elem),
			Impact:  domain.PriorityHigh,
			Effort:  "low",
			Implementation: []string{
				fmt.Sprintf("Gather your business %s information", elem),
				"Log into Google Business Profile",
				fmt.Sprintf("Add %s in the appropriate section", elem),
				"Verify information accuracy",
			},
		})
	}
	return recs
}

func buildSummary(biz *domain.Business, completeness float64) domain.ReportSummary {
	reviews := "unknown"
	if biz.ReviewsCount > 0 {
		reviews = fmt.Sprintf("%d", biz.ReviewsCount)
	}
	claimed := "unclaimed"
	if biz.Claimed {
		claimed = "claimed"
	}

	var strengths []string
	if biz.Claimed {
		strengths = append(strengths, "Profile is claimed and verified")
	}
	if biz.Rating >= 4.0 {
		strengths = append(strengths, "Strong overall rating")
	}
	if biz.ReviewsCount > 20 {
		strengths = append(strengths, "Good number of reviews")
	}
	if biz.Website != "" {
		strengths = append(strengths, "Website link provided")
	}
	if len(biz.Hours) > 0 {
		strengths = append(strengths, "Business hours listed")
	}

	var opportunities []string
	if !biz.Claimed {
		opportunities = append(opportunities, "Claim and verify business profile")
	}
	if biz.Website == "" {
		opportunities = append(opportunities, "Add website link")
	}
	if len(biz.Hours) == 0 {
		opportunities = append(opportunities, "Add business hours")
	}
	if len(biz.Photos) < 5 {
		opportunities = append(opportunities, "Add more photos")
	}
	if biz.Rating < 4.0 {
		opportunities = append(opportunities, "Improve overall rating")
	}
	if biz.ReviewsCount < 20 {
		opportunities = append(opportunities, "Generate more reviews")
	}

	immediateTask := "Claim and verify business profile"
	if biz.Claimed {
		immediateTask = "Review and update all profile information"
	}

	return domain.ReportSummary{
		Overview: fmt.Sprintf("%s has a %g star rating with %s reviews. The profile is %s and shows %d%% completeness.",
			biz.Name, biz.Rating, reviews, claimed, int(math.Round(completeness))),
		Strengths:     strengths,
		Opportunities: opportunities,
		ActionPlan: domain.ActionPlan{
			Immediate: []domain.ActionItem{
				{Task: immediateTask, ExpectedImpact: "Improved visibility and credibility"},
				{Task: "Set up review management system", ExpectedImpact: "Better customer engagement and ratings"},
			},
			ShortTerm: []domain.ActionItem{
				{Task: "Implement review generation strategy", ExpectedImpact: "Increased review count and improved rating"},
				{Task: "Add missing profile elements", ExpectedImpact: "Enhanced profile completeness"},
			},
		},
	}
}

func completenessPriority(score float64) string {
	switch {
	case score < 60:
		return domain.PriorityHigh
	case score < 80:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func ratingPriority(rating float64) string {
	switch {
	case rating < 4.0:
		return domain.PriorityHigh
	case rating < 4.5:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
