package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/pure_utils"
)

func TestSessionListQueryFilter(t *testing.T) {
	assert.Equal(t,
		models.SessionListFilter{UserId: "u1", Limit: models.SessionListDefaultLimit},
		SessionListQuery{UserId: "u1"}.Filter())

	assert.Equal(t,
		models.SessionListFilter{UserId: "u1", Limit: 10, Offset: 20},
		SessionListQuery{UserId: "u1", Limit: pure_utils.Ptr(10), Offset: 20}.Filter())
}

func TestAdaptSessionDetailDto(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	session := models.Session{
		SessionId: "s1",
		UserId:    "u1",
		Title:     pure_utils.Ptr("Denials by payer"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	detail := AdaptSessionDetailDto(session, []models.Turn{})
	assert.Equal(t, "s1", detail.SessionId)
	assert.Equal(t, "Denials by payer", *detail.Title)
	assert.NotNil(t, detail.Turns)
	assert.Empty(t, detail.Turns)
}

func TestAdaptHealthDto(t *testing.T) {
	healthy := models.HealthStatus{Statuses: []models.HealthItemStatus{{Name: models.StorageHealthItemName, Status: true}}}
	assert.Equal(t, HealthDto{Status: "healthy", Api: "running", Storage: "connected"}, AdaptHealthDto(healthy))
	assert.Equal(t, HealthDto{Status: "degraded", Api: "running", Storage: "disconnected"}, AdaptHealthDto(models.HealthStatus{}))
}
