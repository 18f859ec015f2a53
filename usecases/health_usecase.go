package usecases

import (
	"context"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/utils"
)

type healthRepository interface {
	HealthCheck(ctx context.Context) error
}

type HealthUsecase struct {
	healthRepository healthRepository
}

func (u *HealthUsecase) GetHealthStatus(ctx context.Context) models.HealthStatus {
	return models.HealthStatus{
		Statuses: []models.HealthItemStatus{{
			Name:   models.StorageHealthItemName,
			Status: u.storageHealthy(ctx),
		}},
	}
}

// Ready is true when the storage answers.
func (u *HealthUsecase) Ready(ctx context.Context) bool {
	return u.storageHealthy(ctx)
}

func (u *HealthUsecase) storageHealthy(ctx context.Context) bool {
	if isNilRepository(u.healthRepository) {
		return false
	}
	if err := u.healthRepository.HealthCheck(ctx); err != nil {
		utils.LoggerFromContext(ctx).WarnContext(ctx, "storage health check failed", "error", err.Error())
		return false
	}
	return true
}
