package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/utils"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	tp := noop.NewTracerProvider()

	t.Run("memory", func(t *testing.T) {
		repo, err := openStorage(ctx, StorageConfig{Backend: "memory"}, tp)
		require.NoError(t, err)
		assert.IsType(t, &repositories.MemorySessionRepository{}, repo)
	})

	t.Run("memory behind the cache", func(t *testing.T) {
		repo, err := openStorage(ctx, StorageConfig{
			Backend: "memory",
			Cache:   infra.SessionCacheConfig{Size: 10, Ttl: time.Minute},
		}, tp)
		require.NoError(t, err)
		assert.IsType(t, &repositories.CachedSessionRepository{}, repo)
	})

	t.Run("databricks with an invalid table name", func(t *testing.T) {
		_, err := openStorage(ctx, StorageConfig{
			Backend: "databricks",
			Databricks: infra.DatabricksConfig{
				Host:          "https://dbc.example.com",
				Token:         "token",
				WarehouseId:   "wh",
				SessionsTable: "chat; DROP TABLE x",
				TurnsTable:    "chat_turns",
			},
		}, tp)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := openStorage(ctx, StorageConfig{Backend: "cosmos"}, tp)
		assert.Error(t, err)
	})
}

func TestInitializeStorage_ReturnsNilWhenUnavailable(t *testing.T) {
	ctx := utils.StoreLoggerInContext(context.Background(), utils.NewLogger("text"))
	repo := initializeStorage(ctx, StorageConfig{Backend: "cosmos"}, noop.NewTracerProvider())
	assert.Nil(t, repo)
}
