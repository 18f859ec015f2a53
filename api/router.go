package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	limits "github.com/gin-contrib/size"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/healthfin/healthcare-api/api/middleware"
	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/utils"
)

const defaultMaxRequestBodySize = 1 * 1024 * 1024

var (
	probePaths         = []string{"/health", "/health/live", "/health/ready", "/metrics"}
	DefaultCorsOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
)

// allowedOrigins keeps the well formed origins of the configuration, reduced
// to scheme and host. The local frontends are used when none is valid.
func allowedOrigins(ctx context.Context, conf Configuration) []string {
	logger := utils.LoggerFromContext(ctx)
	origins := []string{}
	for _, s := range conf.CorsOrigins {
		parsedUrl, err := url.Parse(s)
		switch {
		case err != nil:
			logger.Error("Failed to parse a CORS origin, browser requests from it will be rejected.", "url", s)
		case !slices.Contains([]string{"http", "https"}, parsedUrl.Scheme):
			logger.Error(
				fmt.Sprintf("The url %s does not contain a scheme (http or https), so it cannot be used for CORS.", s),
				"url", s)
		default:
			u := url.URL{Scheme: parsedUrl.Scheme, Host: parsedUrl.Host}
			origins = append(origins, u.String())
		}
	}
	if len(origins) == 0 {
		return DefaultCorsOrigins
	}
	return origins
}

func corsOption(ctx context.Context, conf Configuration) cors.Config {
	c := cors.Config{
		AllowMethods: []string{
			http.MethodOptions, http.MethodHead, http.MethodGet,
			http.MethodPost, http.MethodDelete, http.MethodPatch,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type", "baggage", "sentry-trace"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if conf.IsDevelopment() {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = allowedOrigins(ctx, conf)
	return c
}

// registerBindingFieldNames makes gin binding errors name query fields the way
// the client wrote them.
func registerBindingFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		dto.RegisterFieldNames(v, "form")
	}
}

func InitRouterMiddlewares(
	ctx context.Context,
	conf Configuration,
	telemetryRessources infra.TelemetryRessources,
) *gin.Engine {
	if !conf.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	registerBindingFieldNames()

	logger := utils.LoggerFromContext(ctx)

	maxBodySize := conf.MaxRequestBodySize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(cors.New(corsOption(ctx, conf)))
	r.Use(middleware.NewLogging(logger,
		middleware.WithIgnorePath(probePaths),
		middleware.WithLoggedLevel(conf.RequestLoggingLevel),
	))
	r.Use(utils.StoreLoggerInContextMiddleware(logger))
	r.Use(otelgin.Middleware(
		conf.AppName,
		otelgin.WithTracerProvider(telemetryRessources.TracerProvider),
		otelgin.WithPropagators(telemetryRessources.TextMapPropagator),
	))
	r.Use(limits.RequestSizeLimiter(maxBodySize))

	return r
}
