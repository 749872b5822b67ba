package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/resilience"
)

const recommendationModel = "gpt-4o-mini"

const recommendationSystemPrompt = `You are a Google Business Profile consultant. ` +
	`Given a business profile, return a JSON object {"recommendations":[...]} where each ` +
	`recommendation has "action", "details", "impact" ("high", "medium" or "low"), ` +
	`"effort" and "implementation" (a list of concrete steps). ` +
	`Return 3 to 5 recommendations. Return only JSON.`

// OpenAIClient generates report recommendations via the OpenAI chat API.
// A bulkhead bounds concurrent generations: each one is slow and billed,
// so a burst of scans must queue rather than fan out.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
}

// NewOpenAIClient creates a new OpenAIClient. metrics may be nil.
func NewOpenAIClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics) *OpenAIClient {
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &OpenAIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(concurrency),
		metrics:    metrics,
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type recommendationPayload struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// Generate asks the model for improvement recommendations for biz.
// The API key is per-call, resolved by the credential service.
func (c *OpenAIClient) Generate(ctx context.Context, apiKey string, biz *domain.Business) ([]domain.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("business.name", biz.Name))

	profile, err := json.Marshal(biz)
	if err != nil {
		return nil, err
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "openai.generate"}
	}
	defer c.bulkhead.Release()

	var chatResp chatResponse

	_, err = c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(chatRequest{
				Model: recommendationModel,
				Messages: []chatMessage{
					{Role: "system", Content: recommendationSystemPrompt},
					{Role: "user", Content: string(profile)},
				},
				ResponseFormat: responseFormat{Type: "json_object"},
			})
			if err != nil {
				return err
			}

			url := c.baseURL + "/v1/chat/completions"
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("openai API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&chatResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "openai"}
		}
		return nil, &domain.ErrExternalService{Service: "openai", Err: err}
	}

	if c.metrics != nil {
		c.metrics.RecordTokens(chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	}

	if len(chatResp.Choices) == 0 {
		return nil, &domain.ErrExternalService{Service: "openai", Err: fmt.Errorf("empty response")}
	}

	var payload recommendationPayload
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &domain.ErrExternalService{Service: "openai", Err: fmt.Errorf("malformed recommendations: %w", err)}
	}
	return payload.Recommendations, nil
}
