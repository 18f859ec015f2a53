package cmd

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/utils"
)

func RunMigrations() error {
	pgConfig := loadPgConfig()

	logger := utils.NewLogger(utils.GetEnv("LOGGING_FORMAT", "text"))
	ctx := utils.StoreLoggerInContext(context.Background(), logger)

	if !pgConfig.Configured() {
		return errors.New("migrations need PG_CONNECTION_STRING or PG_HOSTNAME")
	}

	migrater := repositories.NewMigrater(pgConfig)
	if err := migrater.Run(ctx); err != nil {
		logger.ErrorContext(ctx, fmt.Sprintf("error running migrations: %v", err))
		return err
	}

	return nil
}
