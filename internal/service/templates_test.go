package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
)

func TestTemplateCreateValidation(t *testing.T) {
	svc := service.NewTemplateService(newMockTemplateStore(), zap.NewNop())

	tests := []struct {
		name string
		req  domain.SaveTemplateRequest
	}{
		{"missing name", domain.SaveTemplateRequest{Subject: "Hello"}},
		{"missing subject", domain.SaveTemplateRequest{Name: "Welcome"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "demo", &tt.req)
			var vErr *domain.ErrValidation
			if !errors.As(err, &vErr) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTemplateUpdateKeepsUnsetFields(t *testing.T) {
	svc := service.NewTemplateService(newMockTemplateStore(), zap.NewNop())

	created, err := svc.Create(context.Background(), "demo", &domain.SaveTemplateRequest{
		Name:    "Welcome",
		Subject: "Your report",
		Content: "Hi {{businessName}}",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), "demo", created.ID, &domain.SaveTemplateRequest{
		Subject: "Your new report",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Subject != "Your new report" {
		t.Errorf("subject = %q", updated.Subject)
	}
	if updated.Name != "Welcome" || updated.Content != "Hi {{businessName}}" {
		t.Errorf("unset fields changed: %+v", updated)
	}
}

func TestTemplateAgencyScoping(t *testing.T) {
	svc := service.NewTemplateService(newMockTemplateStore(), zap.NewNop())

	created, err := svc.Create(context.Background(), "demo", &domain.SaveTemplateRequest{
		Name:    "Welcome",
		Subject: "Your report",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := svc.Get(context.Background(), "other-agency", created.ID); !errors.As(err, &nf) {
		t.Errorf("cross-agency get: expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "other-agency", created.ID); !errors.As(err, &nf) {
		t.Errorf("cross-agency delete: expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "demo", created.ID); err != nil {
		t.Errorf("owner get failed: %v", err)
	}
}

func TestTemplateDeleteMissing(t *testing.T) {
	svc := service.NewTemplateService(newMockTemplateStore(), zap.NewNop())

	var nf *domain.ErrNotFound
	if err := svc.Delete(context.Background(), "demo", "nope"); !errors.As(err, &nf) {
		t.Errorf("expected not found, got %v", err)
	}
}
