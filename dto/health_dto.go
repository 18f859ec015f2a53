package dto

import (
	"github.com/healthfin/healthcare-api/models"
)

type ServiceInfoDto struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type HealthDto struct {
	Status  string `json:"status"`
	Api     string `json:"api"`
	Storage string `json:"storage"`
}

func AdaptHealthDto(status models.HealthStatus) HealthDto {
	if status.ItemStatus(models.StorageHealthItemName) {
		return HealthDto{Status: "healthy", Api: "running", Storage: "connected"}
	}
	return HealthDto{Status: "degraded", Api: "running", Storage: "disconnected"}
}

type ProbeDto struct {
	Status string `json:"status"`
}
