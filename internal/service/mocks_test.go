package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// --- Mocks ---

type mockSettingsStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{data: make(map[string][]byte)}
}

func (m *mockSettingsStore) GetSetting(_ context.Context, agencyID, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[agencyID+"/"+key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "setting", ID: key}
	}
	return v, nil
}

func (m *mockSettingsStore) PutSetting(_ context.Context, agencyID, key string, value []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[agencyID+"/"+key] = value
	return nil
}

func (m *mockSettingsStore) DeleteSetting(_ context.Context, agencyID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, agencyID+"/"+key)
	return nil
}

type mockLeadStore struct {
	mu    sync.Mutex
	leads map[string]domain.Lead
	err   error
}

func newMockLeadStore() *mockLeadStore {
	return &mockLeadStore{leads: make(map[string]domain.Lead)}
}

func (m *mockLeadStore) Add(_ context.Context, lead *domain.Lead) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.leads[lead.ID]; exists {
		return &domain.ErrStorage{Op: "lead.add"}
	}
	m.leads[lead.ID] = *lead
	return nil
}

func (m *mockLeadStore) Get(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return &lead, nil
}

func (m *mockLeadStore) ListAll(_ context.Context) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLeadStore) ListByAgency(_ context.Context, agencyID string) ([]domain.Lead, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lead
	for _, l := range m.leads {
		if l.AgencyID == agencyID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLeadStore) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leads, id)
	return nil
}

func (m *mockLeadStore) CountByAgency(ctx context.Context, agencyID string) (int64, error) {
	leads, err := m.ListByAgency(ctx, agencyID)
	return int64(len(leads)), err
}

type mockTemplateStore struct {
	mu        sync.Mutex
	templates map[string]domain.EmailTemplate
}

func newMockTemplateStore() *mockTemplateStore {
	return &mockTemplateStore{templates: make(map[string]domain.EmailTemplate)}
}

func (m *mockTemplateStore) ListTemplates(_ context.Context, agencyID string) ([]domain.EmailTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EmailTemplate
	for _, t := range m.templates {
		if t.AgencyID == agencyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTemplateStore) GetTemplate(_ context.Context, agencyID, id string) (*domain.EmailTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.AgencyID != agencyID {
		return nil, &domain.ErrNotFound{Resource: "email template", ID: id}
	}
	return &t, nil
}

func (m *mockTemplateStore) SaveTemplate(_ context.Context, tpl *domain.EmailTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tpl.ID] = *tpl
	return nil
}

func (m *mockTemplateStore) DeleteTemplate(_ context.Context, agencyID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, id)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(_ context.Context, event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockPublisher) published() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

type mockMailSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, body string
}

func (m *mockMailSender) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type mockPlaces struct {
	results []domain.Business
	details map[string]*domain.Business
	err     error

	mu          sync.Mutex
	searchCount int
	lastKey     string
}

func (m *mockPlaces) Search(_ context.Context, apiKey, query, location string) ([]domain.Business, error) {
	m.mu.Lock()
	m.searchCount++
	m.lastKey = apiKey
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockPlaces) GetDetails(_ context.Context, apiKey, placeID string) (*domain.Business, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	m.lastKey = apiKey
	m.mu.Unlock()
	if d, ok := m.details[placeID]; ok {
		return d, nil
	}
	return nil, &domain.ErrNotFound{Resource: "place", ID: placeID}
}

type mockGenerator struct {
	recommendations []domain.Recommendation
	err             error
	delay           time.Duration

	mu    sync.Mutex
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ string, _ *domain.Business) ([]domain.Recommendation, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.recommendations, m.err
}
