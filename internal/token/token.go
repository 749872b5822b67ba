// Package token implements the embed token codec. An embed token carries
// an agency ID and its API credentials across an origin boundary as a
// base64-encoded JSON payload with an expiry timestamp.
package token

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// DefaultTTL is the validity window for newly minted tokens.
const DefaultTTL = 24 * time.Hour

// Codec encodes and decodes embed tokens.
type Codec struct {
	ttl time.Duration
	now func() time.Time
}

// NewCodec returns a Codec with the given TTL. A non-positive TTL falls
// back to DefaultTTL.
func NewCodec(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{ttl: ttl, now: time.Now}
}

// Encode mints a token for the agency with the given credentials and
// returns it along with its expiry in Unix milliseconds.
func (c *Codec) Encode(agencyID string, keys domain.CredentialSet) (string, int64, error) {
	expires := c.now().Add(c.ttl).UnixMilli()
	payload := domain.EmbedToken{
		AgencyID: agencyID,
		Keys:     keys,
		Expires:  expires,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", 0, err
	}
	return base64.StdEncoding.EncodeToString(raw), expires, nil
}

// Decode parses and validates a token. It fails closed: malformed base64,
// malformed JSON, a missing agency ID, a missing credential, and an
// expired timestamp all yield a nil token and ok=false. Callers treat a
// failed decode as "no token" and continue without embed credentials.
func (c *Codec) Decode(encoded string) (*domain.EmbedToken, bool) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	var payload domain.EmbedToken
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.AgencyID == "" {
		return nil, false
	}
	if payload.Keys.GooglePlaces == "" || payload.Keys.OpenAI == "" {
		return nil, false
	}
	if payload.Expires <= c.now().UnixMilli() {
		return nil, false
	}
	return &payload, true
}
