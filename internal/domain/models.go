// Package domain defines the core business entities for the GBP Optimizer
// lead-generation API. These models are independent of external services and
// represent the canonical data structures used throughout the service.
package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Agency (tenant)
// ============================================================

// Agency is the tenant that owns leads and API credentials.
type Agency struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Business snapshot
// ============================================================

// Business is the snapshot of public profile facts fetched from the place
// search API for one business.
type Business struct {
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Address      string            `json:"address"`
	Rating       float64           `json:"rating"`
	ReviewsCount int               `json:"reviews_count,omitempty"`
	Claimed      bool              `json:"claimed,omitempty"`
	Photos       []string          `json:"photos,omitempty"`
	Website      string            `json:"website,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Hours        map[string]string `json:"hours,omitempty"`
	PlaceID      string            `json:"place_id,omitempty"`
}

// ============================================================
// Lead
// ============================================================

// Lead source values. "embed" marks leads captured through the embeddable
// widget, "app" marks leads captured in the hosted scanner.
const (
	LeadSourceEmbed = "embed"
	LeadSourceApp   = "app"
)

// Lead is a captured contact event: the visitor's email plus the business
// snapshot and report that prompted the capture. Leads are immutable after
// creation; the only destructive operation is an explicit delete.
type Lead struct {
	ID                   string            `json:"id"`
	Email                string            `json:"email"`
	BusinessName         string            `json:"business_name"`
	BusinessCategory     string            `json:"business_category"`
	BusinessAddress      string            `json:"business_address"`
	BusinessRating       float64           `json:"business_rating"`
	BusinessReviewsCount int               `json:"business_reviews_count,omitempty"`
	BusinessClaimed      bool              `json:"business_claimed,omitempty"`
	BusinessPhotos       []string          `json:"business_photos,omitempty"`
	BusinessWebsite      string            `json:"business_website,omitempty"`
	BusinessPhone        string            `json:"business_phone,omitempty"`
	BusinessHours        map[string]string `json:"business_hours,omitempty"`

	// ReportData is opaque to the persistence layer: stored and returned
	// verbatim, never inspected or rewritten.
	ReportData json.RawMessage `json:"report_data"`

	AgencyID  string    `json:"agency_id"`
	CreatedAt time.Time `json:"created_at"`
	EmailSent bool      `json:"email_sent,omitempty"`
	Source    string    `json:"source"`
	PlaceID   string    `json:"place_id,omitempty"`
}

// ============================================================
// Credentials
// ============================================================

// CredentialSet holds the two external API credentials. An empty value means
// "not configured", never a valid empty credential.
type CredentialSet struct {
	GooglePlaces string `json:"googlePlaces,omitempty"`
	OpenAI       string `json:"openai,omitempty"`
}

// Configured reports whether both credentials required by the scan/capture
// flow are present.
func (c CredentialSet) Configured() bool {
	return c.GooglePlaces != "" && c.OpenAI != ""
}

// Merge overlays non-empty fields of other onto c and returns the result.
// Fields absent from other are preserved.
func (c CredentialSet) Merge(other CredentialSet) CredentialSet {
	out := c
	if other.GooglePlaces != "" {
		out.GooglePlaces = other.GooglePlaces
	}
	if other.OpenAI != "" {
		out.OpenAI = other.OpenAI
	}
	return out
}

// ============================================================
// Embed token
// ============================================================

// EmbedToken is the decoded form of the capability token that scopes the
// embeddable widget to one agency. The token is unsigned: any holder can
// decode and forge it, so it is a convenience mechanism, not an
// access-control boundary.
type EmbedToken struct {
	AgencyID string        `json:"agencyId"`
	Keys     CredentialSet `json:"keys"`
	Expires  int64         `json:"expires"` // unix epoch milliseconds
}

// ============================================================
// Events
// ============================================================

// Event types broadcast by the notification bridge.
const (
	EventLeadStored  = "lead.stored"
	EventLeadDeleted = "lead.deleted"
)

// Event is an advisory notification. Receivers treat it as a hint to
// re-fetch state from the lead store; delivery is at-most-once.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent builds an Event, marshalling data as the payload. Marshal
// failures produce an event with a null payload rather than an error:
// broadcasting is fire-and-forget and must never fail the caller.
func NewEvent(eventType string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = json.RawMessage("null")
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// ============================================================
// Email templates
// ============================================================

// EmailTemplate is a stored email template with {{variable}} placeholders
// in both subject and content.
type EmailTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	AgencyID  string    `json:"agency_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Session state machine
// ============================================================

// SessionState is the auth lifecycle state. No transition leaves Loading
// without resolving to Anonymous or Authenticated.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionLoading       SessionState = "loading"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)
