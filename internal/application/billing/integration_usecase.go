package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Integraciones-api/internal/application/dto"
	"github.com/jhoicas/Integraciones-api/internal/application/validation"
	"github.com/jhoicas/Integraciones-api/internal/domain"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/internal/domain/repository"
)

// IntegrationUseCase administra la conexión de la empresa con su tienda externa.
type IntegrationUseCase struct {
	repo repository.IntegrationRepository
}

// NewIntegrationUseCase construye el caso de uso.
func NewIntegrationUseCase(repo repository.IntegrationRepository) *IntegrationUseCase {
	return &IntegrationUseCase{repo: repo}
}

// Save crea o reemplaza la integración de la empresa. Los secretos vacíos conservan el valor guardado.
func (uc *IntegrationUseCase) Save(ctx context.Context, companyID string, in dto.SaveIntegrationRequest) (*dto.IntegrationResponse, error) {
	if companyID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	current, err := uc.repo.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	integ := &entity.Integration{
		CompanyID:     companyID,
		Platform:      in.Platform,
		BaseURL:       strings.TrimRight(in.BaseURL, "/"),
		AccessToken:   in.AccessToken,
		WebhookSecret: in.WebhookSecret,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.IsActive != nil {
		integ.IsActive = *in.IsActive
	}
	if current != nil {
		if integ.AccessToken == "" {
			integ.AccessToken = current.AccessToken
		}
		if integ.WebhookSecret == "" {
			integ.WebhookSecret = current.WebhookSecret
		}
	}
	if err := uc.repo.Upsert(ctx, integ); err != nil {
		return nil, err
	}
	return toIntegrationResponse(integ), nil
}

// Get devuelve la integración con los secretos enmascarados.
func (uc *IntegrationUseCase) Get(ctx context.Context, companyID string) (*dto.IntegrationResponse, error) {
	integ, err := uc.repo.GetByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if integ == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene integración configurada", domain.ErrNotFound)
	}
	return toIntegrationResponse(integ), nil
}

func toIntegrationResponse(in *entity.Integration) *dto.IntegrationResponse {
	return &dto.IntegrationResponse{
		ID:            in.ID,
		CompanyID:     in.CompanyID,
		Platform:      in.Platform,
		BaseURL:       in.BaseURL,
		AccessToken:   Mask(in.AccessToken),
		WebhookSecret: Mask(in.WebhookSecret),
		IsActive:      in.IsActive,
		LastSyncAt:    in.LastSyncAt,
	}
}

// Mask deja visibles solo los últimos 4 caracteres.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
