package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/usecases"
	"github.com/healthfin/healthcare-api/usecases/workflow"
)

const testAppVersion = "0.1.0"

func testConfiguration() Configuration {
	return Configuration{
		Env:            "test",
		AppName:        "Healthcare Finance Analytics API",
		AppVersion:     testAppVersion,
		Port:           "0",
		DefaultTimeout: 5 * time.Second,
	}
}

// newTestServer serves the full router, middlewares included.
func newTestServer(t *testing.T, repo repositories.SessionRepository, wf workflow.Workflow,
	configure ...func(*Configuration),
) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	conf := testConfiguration()
	for _, c := range configure {
		c(&conf)
	}

	uc := usecases.NewUsecases(repo, wf,
		usecases.WithAppName(conf.AppName),
		usecases.WithApiVersion(conf.AppVersion),
		usecases.WithStorageBackend(repositories.StorageBackendMemory),
		usecases.WithStreamTokenDelay(0),
	)
	router := InitRouterMiddlewares(ctx, conf, infra.NoopTelemetry())
	server, err := NewServer(ctx, router, conf, uc, WithLocalTest(true))
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}
