package domain

import "encoding/json"

// Request/response payloads for the HTTP API.

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token and the resolved agency.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Agency      Agency `json:"agency"`
}

// SessionResponse reports the current session lifecycle state.
type SessionResponse struct {
	State  SessionState `json:"state"`
	Agency *Agency      `json:"agency,omitempty"`
}

// SearchRequest asks for businesses matching a text query.
type SearchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location,omitempty"`
}

// ReportRequest asks for a full report on one business, optionally
// capturing the requester as a lead.
type ReportRequest struct {
	PlaceID string `json:"place_id"`
	Email   string `json:"email,omitempty"`
	Source  string `json:"source,omitempty"`
}

// CaptureLeadRequest stores a lead directly, carrying the business
// snapshot and report produced by an earlier scan.
type CaptureLeadRequest struct {
	Email      string          `json:"email"`
	Business   Business        `json:"business"`
	ReportData json.RawMessage `json:"report_data"`
	Source     string          `json:"source,omitempty"`
}

// UpdateCredentialsRequest updates the stored API credentials. Empty
// fields keep their previously stored value.
type UpdateCredentialsRequest struct {
	GooglePlaces string `json:"googlePlaces"`
	OpenAI       string `json:"openai"`
}

// EmbedTokenRequest mints an embed token for the calling agency.
type EmbedTokenRequest struct {
	// IncludeKeys embeds the agency's credentials in the token so the
	// widget can scan without server-side configuration.
	IncludeKeys bool `json:"include_keys"`
}

// EmbedTokenResponse carries the minted token and its expiry.
type EmbedTokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// SaveTemplateRequest creates or updates an email template.
type SaveTemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// SendEmailRequest sends a templated email to a lead.
type SendEmailRequest struct {
	LeadID     string            `json:"lead_id"`
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables,omitempty"`
}
