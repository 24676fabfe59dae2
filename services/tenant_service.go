package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

type TenantService interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
	Get(ctx context.Context, id int) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
}

func NewTenantService(tenantRepo repositories.TenantRepository) TenantService {
	return &tenantService{tenantRepo: tenantRepo}
}

func (s *tenantService) Create(ctx context.Context, name string) (*models.Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is empty", ErrForbiddenOperation)
	}
	tenant := &models.Tenant{Name: name}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) Get(ctx context.Context, id int) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) List(ctx context.Context) ([]*models.Tenant, error) {
	return s.tenantRepo.List(ctx)
}
