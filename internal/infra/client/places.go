package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

const placesFieldMask = "places.id,places.displayName,places.primaryTypeDisplayName," +
	"places.formattedAddress,places.rating,places.userRatingCount,places.photos," +
	"places.websiteUri,places.nationalPhoneNumber,places.regularOpeningHours"

// PlacesClient fetches business profiles from the Google Places API.
type PlacesClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewPlacesClient creates a new PlacesClient.
func NewPlacesClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *PlacesClient {
	return &PlacesClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type placesSearchResponse struct {
	Places []placeResult `json:"places"`
}

type placeResult struct {
	ID                     string        `json:"id"`
	DisplayName            localizedText `json:"displayName"`
	PrimaryTypeDisplayName localizedText `json:"primaryTypeDisplayName"`
	FormattedAddress       string        `json:"formattedAddress"`
	Rating                 float64       `json:"rating"`
	UserRatingCount        int           `json:"userRatingCount"`
	Photos                 []placePhoto  `json:"photos"`
	WebsiteURI             string        `json:"websiteUri"`
	NationalPhoneNumber    string        `json:"nationalPhoneNumber"`
	RegularOpeningHours    *openingHours `json:"regularOpeningHours"`
}

type localizedText struct {
	Text string `json:"text"`
}

type placePhoto struct {
	Name string `json:"name"`
}

type openingHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// Search runs a text search for businesses matching query near location.
// The API key is per-call: it may come from runtime settings or an embed
// token rather than server config.
func (c *PlacesClient) Search(ctx context.Context, apiKey, query, location string) ([]domain.Business, error) {
	ctx, span := tracer.Start(ctx, "PlacesClient.Search")
	defer span.End()
	span.SetAttributes(attribute.String("places.query", query))

	text := query
	if location != "" {
		text = query + " in " + location
	}

	var searchResp placesSearchResponse

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(map[string]string{"textQuery": text})
			if err != nil {
				return err
			}

			url := c.baseURL + "/v1/places:searchText"
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Goog-Api-Key", apiKey)
			req.Header.Set("X-Goog-FieldMask", placesFieldMask)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("places API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&searchResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "places"}
		}
		return nil, &domain.ErrExternalService{Service: "places", Err: err}
	}

	businesses := make([]domain.Business, 0, len(searchResp.Places))
	for i := range searchResp.Places {
		businesses = append(businesses, toBusiness(&searchResp.Places[i]))
	}
	return businesses, nil
}

// GetDetails fetches the full profile of a single place.
func (c *PlacesClient) GetDetails(ctx context.Context, apiKey, placeID string) (*domain.Business, error) {
	ctx, span := tracer.Start(ctx, "PlacesClient.GetDetails")
	defer span.End()
	span.SetAttributes(attribute.String("places.id", placeID))

	var result placeResult

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/places/%s", c.baseURL, placeID)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			req.Header.Set("X-Goog-Api-Key", apiKey)
			req.Header.Set("X-Goog-FieldMask", strings.ReplaceAll(placesFieldMask, "places.", ""))

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "place", ID: placeID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("places API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&result)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nf
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "places"}
		}
		return nil, &domain.ErrExternalService{Service: "places", Err: err}
	}

	biz := toBusiness(&result)
	return &biz, nil
}

func toBusiness(p *placeResult) domain.Business {
	biz := domain.Business{
		Name:         p.DisplayName.Text,
		Category:     p.PrimaryTypeDisplayName.Text,
		Address:      p.FormattedAddress,
		Rating:       p.Rating,
		ReviewsCount: p.UserRatingCount,
		Website:      p.WebsiteURI,
		Phone:        p.NationalPhoneNumber,
		PlaceID:      p.ID,
		Claimed:      p.WebsiteURI != "" || p.NationalPhoneNumber != "",
	}
	for _, photo := range p.Photos {
		biz.Photos = append(biz.Photos, photo.Name)
	}
	if p.RegularOpeningHours != nil {
		biz.Hours = make(map[string]string, len(p.RegularOpeningHours.WeekdayDescriptions))
		for _, desc := range p.RegularOpeningHours.WeekdayDescriptions {
			if day, hours, ok := strings.Cut(desc, ": "); ok {
				biz.Hours[day] = hours
			}
		}
	}
	return biz
}
