package token

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(24 * time.Hour)
	keys := domain.CredentialSet{GooglePlaces: "places-key", OpenAI: "openai-key"}

	encoded, expires, err := codec.Encode("agency-1", keys)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if expires <= time.Now().UnixMilli() {
		t.Errorf("expires = %d, want a future timestamp", expires)
	}

	decoded, ok := codec.Decode(encoded)
	if !ok {
		t.Fatal("expected token to decode")
	}
	if decoded.AgencyID != "agency-1" {
		t.Errorf("agencyID = %q, want agency-1", decoded.AgencyID)
	}
	if decoded.Keys != keys {
		t.Errorf("keys = %+v, want %+v", decoded.Keys, keys)
	}
}

func TestEncodeWireFormat(t *testing.T) {
	codec := NewCodec(time.Hour)
	codec.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	encoded, _, err := codec.Encode("agency-1", domain.CredentialSet{GooglePlaces: "pk"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("token is not valid base64: %v", err)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("token payload is not valid JSON: %v", err)
	}
	for _, field := range []string{"agencyId", "keys", "expires"} {
		if _, ok := payload[field]; !ok {
			t.Errorf("payload missing field %q", field)
		}
	}
	var expires int64
	if err := json.Unmarshal(payload["expires"], &expires); err != nil {
		t.Fatalf("expires: %v", err)
	}
	if want := int64(1_700_000_000_000 + 3_600_000); expires != want {
		t.Errorf("expires = %d, want %d", expires, want)
	}
}

func TestDecodeExpired(t *testing.T) {
	codec := NewCodec(time.Hour)
	codec.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	encoded, _, err := codec.Encode("agency-1", domain.CredentialSet{GooglePlaces: "pk", OpenAI: "ok"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	codec.now = func() time.Time { return time.UnixMilli(1_700_000_000_000).Add(2 * time.Hour) }
	if _, ok := codec.Decode(encoded); ok {
		t.Error("expected expired token to fail decode")
	}
}

func TestDecodeFailsClosed(t *testing.T) {
	codec := NewCodec(time.Hour)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"not json", base64.StdEncoding.EncodeToString([]byte("hello"))},
		{"missing agency", base64.StdEncoding.EncodeToString([]byte(`{"keys":{"googlePlaces":"pk","openai":"ok"},"expires":99999999999999}`))},
		{"missing keys", base64.StdEncoding.EncodeToString([]byte(`{"agencyId":"a","expires":99999999999999}`))},
		{"missing openai key", base64.StdEncoding.EncodeToString([]byte(`{"agencyId":"a","keys":{"googlePlaces":"pk"},"expires":99999999999999}`))},
		{"missing places key", base64.StdEncoding.EncodeToString([]byte(`{"agencyId":"a","keys":{"openai":"ok"},"expires":99999999999999}`))},
		{"truncated", base64.StdEncoding.EncodeToString([]byte(`{"agencyId":"a"`))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tok, ok := codec.Decode(tc.token); ok {
				t.Errorf("expected decode failure, got %+v", tok)
			}
		})
	}
}

func TestDefaultTTL(t *testing.T) {
	codec := NewCodec(0)
	if codec.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", codec.ttl, DefaultTTL)
	}
}
