package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

func TestCanView(t *testing.T) {
	order := domain.Order{ID: 1, OwnerID: 10}

	cases := []struct {
		name      string
		principal *domain.Principal
		want      error
	}{
		{name: "owner", principal: &domain.Principal{ID: 10}, want: nil},
		{name: "admin stranger", principal: &domain.Principal{ID: 99, Role: domain.RoleAdmin}, want: nil},
		{name: "customer stranger", principal: &domain.Principal{ID: 11}, want: domain.ErrAccessDenied},
		{name: "unknown role stranger", principal: &domain.Principal{ID: 11, Role: 2}, want: domain.ErrAccessDenied},
		{name: "no principal", principal: nil, want: domain.ErrAccessDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := domain.CanView(tc.principal, order); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCanCancel_NoAdminBypass(t *testing.T) {
	order := domain.Order{ID: 1, OwnerID: 10}

	if err := domain.CanCancel(&domain.Principal{ID: 10}, order); err != nil {
		t.Fatalf("owner must be allowed, got %v", err)
	}
	if err := domain.CanCancel(&domain.Principal{ID: 10, Role: domain.RoleAdmin}, order); err != nil {
		t.Fatalf("admin owner must be allowed, got %v", err)
	}
	if err := domain.CanCancel(&domain.Principal{ID: 1, Role: domain.RoleAdmin}, order); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("admin non-owner must be denied, got %v", err)
	}
	if err := domain.CanCancel(nil, order); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("nil principal must be denied, got %v", err)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	if err := domain.RequireAuthenticated(nil); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if err := domain.RequireAuthenticated(&domain.Principal{ID: 1}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
