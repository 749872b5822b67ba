package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
)

var credTracer = otel.Tracer("service/credentials")

// SettingsKey is the settings-store key the credential envelope lives under.
const SettingsKey = "gbp-optimizer-api-keys"

// credentialEnvelope is the persisted wire shape. The nesting is part of
// the stored format and must survive round trips unchanged.
type credentialEnvelope struct {
	State struct {
		Credentials domain.CredentialSet `json:"credentials"`
	} `json:"state"`
}

// CredentialService resolves the API credentials for a request. Precedence
// is runtime update > persisted settings > server config; an embed token's
// keys override all three for that request.
type CredentialService struct {
	store    port.SettingsStore
	defaults domain.CredentialSet
	logger   *zap.Logger

	mu      sync.RWMutex
	runtime map[string]domain.CredentialSet
}

// NewCredentialService creates a credential service with server-level
// defaults from config.
func NewCredentialService(store port.SettingsStore, defaults domain.CredentialSet, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		store:    store,
		defaults: defaults,
		logger:   logger,
		runtime:  make(map[string]domain.CredentialSet),
	}
}

// Get returns the credentials an agency has configured, without falling
// back to server defaults. Used by the settings endpoint so an agency only
// ever sees its own keys.
func (s *CredentialService) Get(ctx context.Context, agencyID string) (domain.CredentialSet, error) {
	ctx, span := credTracer.Start(ctx, "CredentialService.Get")
	defer span.End()

	s.mu.RLock()
	runtime, hasRuntime := s.runtime[agencyID]
	s.mu.RUnlock()
	if hasRuntime {
		return runtime, nil
	}

	persisted, err := s.loadPersisted(ctx, agencyID)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	return persisted, nil
}

// Update overlays the incoming credentials onto the agency's current set
// and persists the merged result, which it returns. Empty fields keep
// their previous value, so the settings form can submit one key without
// erasing the other. A failed persist keeps the runtime copy so the
// session continues to work; the error is logged and swallowed.
func (s *CredentialService) Update(ctx context.Context, agencyID string, creds domain.CredentialSet) (domain.CredentialSet, error) {
	ctx, span := credTracer.Start(ctx, "CredentialService.Update")
	defer span.End()

	current, err := s.Get(ctx, agencyID)
	if err != nil {
		// Unreadable settings must not block a key change; merge over
		// whatever the runtime layer holds.
		s.logger.Warn("credential read failed, merging over runtime copy",
			zap.String("agency_id", agencyID),
			zap.Error(err),
		)
		s.mu.RLock()
		current = s.runtime[agencyID]
		s.mu.RUnlock()
	}
	merged := current.Merge(creds)

	s.mu.Lock()
	s.runtime[agencyID] = merged
	s.mu.Unlock()

	var envelope credentialEnvelope
	envelope.State.Credentials = merged
	raw, err := json.Marshal(envelope)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	if err := s.store.PutSetting(ctx, agencyID, SettingsKey, raw); err != nil {
		s.logger.Warn("credential persist failed, keeping runtime copy",
			zap.String("agency_id", agencyID),
			zap.Error(err),
		)
	}
	return merged, nil
}

// Reset drops an agency's runtime override, falling back to whatever is
// persisted or configured. Called on sign-out.
func (s *CredentialService) Reset(agencyID string) {
	s.mu.Lock()
	delete(s.runtime, agencyID)
	s.mu.Unlock()
}

// Resolve returns the effective credentials for a request. When tokenKeys
// is non-nil its non-empty fields win over everything the agency or server
// has configured.
func (s *CredentialService) Resolve(ctx context.Context, agencyID string, tokenKeys *domain.CredentialSet) (domain.CredentialSet, error) {
	ctx, span := credTracer.Start(ctx, "CredentialService.Resolve")
	defer span.End()

	creds := s.defaults

	persisted, err := s.loadPersisted(ctx, agencyID)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	creds = creds.Merge(persisted)

	s.mu.RLock()
	if runtime, ok := s.runtime[agencyID]; ok {
		creds = creds.Merge(runtime)
	}
	s.mu.RUnlock()

	if tokenKeys != nil {
		creds = creds.Merge(*tokenKeys)
	}
	return creds, nil
}

// RequireConfigured resolves credentials and fails with ErrConfiguration
// when either key is missing. Scan and capture flows call this before any
// external request.
func (s *CredentialService) RequireConfigured(ctx context.Context, agencyID string, tokenKeys *domain.CredentialSet) (domain.CredentialSet, error) {
	creds, err := s.Resolve(ctx, agencyID, tokenKeys)
	if err != nil {
		return domain.CredentialSet{}, err
	}
	if !creds.Configured() {
		return domain.CredentialSet{}, &domain.ErrConfiguration{
			Message: "Google Places and OpenAI API keys must be configured",
		}
	}
	return creds, nil
}

func (s *CredentialService) loadPersisted(ctx context.Context, agencyID string) (domain.CredentialSet, error) {
	raw, err := s.store.GetSetting(ctx, agencyID, SettingsKey)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return domain.CredentialSet{}, nil
		}
		return domain.CredentialSet{}, err
	}

	var envelope credentialEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// A corrupt envelope reads as "nothing configured".
		s.logger.Warn("corrupt credential envelope",
			zap.String("agency_id", agencyID),
			zap.Error(err),
		)
		return domain.CredentialSet{}, nil
	}
	return envelope.State.Credentials, nil
}
