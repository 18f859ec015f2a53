package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/healthfin/healthcare-api/api"
	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/usecases"
	"github.com/healthfin/healthcare-api/usecases/workflow"
	"github.com/healthfin/healthcare-api/utils"
)

func RunServer(compiled CompiledConfig) error {
	return runServer(LoadServerConfig(compiled))
}

func runServer(config ServerConfig) error {
	logger := utils.NewDebugLogger(config.LoggingFormat, config.Debug)
	ctx := utils.StoreLoggerInContext(context.Background(), logger)

	infra.SetupSentry(config.SentryDsn, config.Api.Env, config.Api.AppVersion)
	defer sentry.Flush(3 * time.Second)

	telemetryRessources, err := infra.InitTelemetry(ctx, config.Telemetry, config.Api.AppVersion)
	if err != nil {
		utils.LogAndReportSentryError(ctx, err)
		telemetryRessources = infra.NoopTelemetry()
	}

	repo := initializeStorage(ctx, config.Storage, telemetryRessources.TracerProvider)
	if repo != nil {
		defer repo.Close()
	}

	wf := workflow.New(ctx, config.Workflow)
	logger.InfoContext(ctx, "workflow ready", slog.String("mode", string(wf.Mode())))

	backend, _ := repositories.StorageBackendFrom(config.Storage.Backend)
	uc := usecases.NewUsecases(repo, wf,
		usecases.WithAppName(config.Api.AppName),
		usecases.WithApiVersion(config.Api.AppVersion),
		usecases.WithStorageBackend(backend),
		usecases.WithStreamTokenDelay(config.StreamTokenDelay),
	)

	router := api.InitRouterMiddlewares(ctx, config.Api, telemetryRessources)
	server, err := api.NewServer(ctx, router, config.Api, uc)
	if err != nil {
		utils.LogAndReportSentryError(ctx, err)
		return err
	}

	notify, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server", slog.String("address", server.Addr))
		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			err = errors.Wrap(err, "Error while serving the app")
			utils.LogAndReportSentryError(ctx, err)
			serveErr <- err
		}
		logger.InfoContext(ctx, "server returned")
		stop()
	}()

	<-notify.Done()
	select {
	case err := <-serveErr:
		return err
	default:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.LogAndReportSentryError(
			ctx,
			errors.Wrap(err, "Error while shutting down the server"),
		)
		return err
	}
	if err := telemetryRessources.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(ctx, fmt.Sprintf("error flushing traces: %v", err))
	}

	return nil
}
