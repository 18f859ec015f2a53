package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/repositories/databricks"
	"github.com/healthfin/healthcare-api/utils"
)

// openStorage builds the session repository of the configured backend. A
// backend that cannot be reached returns an error and the server runs
// without storage, which the health endpoints report.
func openStorage(ctx context.Context, config StorageConfig, tp trace.TracerProvider) (repositories.SessionRepository, error) {
	backend, ok := repositories.StorageBackendFrom(config.Backend)
	if !ok {
		return nil, errors.Newf("unknown storage backend %q", config.Backend)
	}

	var repo repositories.SessionRepository
	switch backend {
	case repositories.StorageBackendPostgres:
		pool, err := infra.NewPostgresConnectionPool(ctx, config.Pg, tp)
		if err != nil {
			return nil, errors.Wrap(err, "could not create postgres connection pool")
		}
		repo = repositories.NewPostgresSessionRepository(pool)
	case repositories.StorageBackendDatabricks:
		client, err := databricks.NewClient(ctx, config.databricksClientConfig())
		if err != nil {
			return nil, errors.Wrap(err, "could not create databricks client")
		}
		repo, err = databricks.NewSessionRepository(client,
			config.Databricks.SessionsTable, config.Databricks.TurnsTable)
		if err != nil {
			return nil, err
		}
	case repositories.StorageBackendMemory:
		repo = repositories.NewMemorySessionRepository()
	}

	if config.Cache.Size > 0 {
		repo = repositories.NewCachedSessionRepository(repo, config.Cache.Size, config.Cache.Ttl)
	}
	return repo, nil
}

// initializeStorage opens the storage and creates its tables. Failures are
// logged and the server keeps starting.
func initializeStorage(ctx context.Context, config StorageConfig, tp trace.TracerProvider) repositories.SessionRepository {
	logger := utils.LoggerFromContext(ctx)

	repo, err := openStorage(ctx, config, tp)
	if err != nil {
		utils.LogAndReportSentryError(ctx, errors.Wrap(err, "storage is not available"))
		return nil
	}

	if err := repo.Initialize(ctx); err != nil {
		logger.WarnContext(ctx, fmt.Sprintf("could not initialize storage tables: %v", err),
			slog.String("backend", config.Backend))
	} else {
		logger.InfoContext(ctx, "storage initialized", slog.String("backend", config.Backend))
	}
	return repo
}
