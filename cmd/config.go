package cmd

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/healthfin/healthcare-api/api"
	"github.com/healthfin/healthcare-api/infra"
	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/repositories/databricks"
	"github.com/healthfin/healthcare-api/usecases/workflow"
	"github.com/healthfin/healthcare-api/utils"
)

const (
	AppName        = "Healthcare Finance Analytics API"
	DefaultVersion = "0.1.0"
)

// CompiledConfig holds the values set at build time.
type CompiledConfig struct {
	Version string
}

func (c CompiledConfig) version() string {
	if c.Version == "" {
		return DefaultVersion
	}
	return c.Version
}

type StorageConfig struct {
	Backend    string
	Pg         infra.PgConfig
	Databricks infra.DatabricksConfig
	Cache      infra.SessionCacheConfig
}

type ServerConfig struct {
	Api              api.Configuration
	Storage          StorageConfig
	Workflow         workflow.Config
	StreamTokenDelay time.Duration
	LoggingFormat    string
	Debug            bool
	SentryDsn        string
	Telemetry        infra.TelemetryConfiguration
}

func loadPgConfig() infra.PgConfig {
	return infra.PgConfig{
		ConnectionString:   utils.GetEnv("PG_CONNECTION_STRING", ""),
		Database:           utils.GetEnv("PG_DATABASE", "healthcare"),
		Hostname:           utils.GetEnv("PG_HOSTNAME", ""),
		Password:           utils.GetEnv("PG_PASSWORD", ""),
		Port:               utils.GetEnv("PG_PORT", "5432"),
		User:               utils.GetEnv("PG_USER", ""),
		MaxPoolConnections: utils.GetEnv("PG_MAX_POOL_SIZE", infra.DEFAULT_MAX_CONNECTIONS),
		SslMode:            utils.GetEnv("PG_SSL_MODE", "prefer"),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: utils.GetEnv("STORAGE_BACKEND", string(repositories.StorageBackendDatabricks)),
		Pg:      loadPgConfig(),
		Databricks: infra.DatabricksConfig{
			Host:          utils.GetEnv("DATABRICKS_HOST", ""),
			Token:         utils.GetEnv("DATABRICKS_TOKEN", ""),
			ClientId:      utils.GetEnv("DATABRICKS_CLIENT_ID", ""),
			ClientSecret:  utils.GetEnv("DATABRICKS_CLIENT_SECRET", ""),
			WarehouseId:   utils.GetEnv("SQL_WAREHOUSE_ID", ""),
			SessionsTable: utils.GetEnv("CHAT_SESSIONS_TABLE", "chat_sessions"),
			TurnsTable:    utils.GetEnv("CHAT_TURNS_TABLE", "chat_turns"),
		},
		Cache: infra.SessionCacheConfig{
			Size: utils.GetEnv("SESSION_CACHE_SIZE", 1000),
			Ttl:  utils.GetEnvDuration("SESSION_CACHE_TTL_SECONDS", 5*time.Minute, time.Second),
		},
	}
}

// LoadServerConfig reads the whole server configuration from the environment.
func LoadServerConfig(compiled CompiledConfig) ServerConfig {
	env := utils.GetEnv("ENV", "development")

	return ServerConfig{
		Api: api.Configuration{
			Env:                 env,
			AppName:             AppName,
			AppVersion:          compiled.version(),
			Host:                utils.GetEnv("API_HOST", "0.0.0.0"),
			Port:                utils.GetEnv("PORT", "8000"),
			RequestLoggingLevel: utils.GetEnv("REQUEST_LOGGING_LEVEL", "all"),
			CorsOrigins:         utils.GetEnvList("CORS_ORIGINS", api.DefaultCorsOrigins),
			DefaultTimeout:      utils.GetEnvDuration("DEFAULT_TIMEOUT_SECOND", 30*time.Second, time.Second),
			WsMessagesPerSecond: utils.GetEnv("WS_MESSAGES_PER_SECOND", 5.0),
			WsMessagesBurst:     utils.GetEnv("WS_MESSAGES_BURST", 10),
		},
		Storage: loadStorageConfig(),
		Workflow: workflow.Config{
			Mode:         workflow.Mode(utils.GetEnv("WORKFLOW_MODE", string(workflow.ModePlaceholder))),
			GeminiApiKey: utils.GetEnv("GEMINI_API_KEY", ""),
			Model:        utils.GetEnv("LLM_MODEL", workflow.DefaultModel),
		},
		StreamTokenDelay: utils.GetEnvDuration("STREAM_TOKEN_DELAY_MS", 20*time.Millisecond, time.Millisecond),
		LoggingFormat:    utils.GetEnv("LOGGING_FORMAT", "text"),
		Debug:            utils.GetEnv("DEBUG", false),
		SentryDsn:        utils.GetEnv("SENTRY_DSN", ""),
		Telemetry: infra.TelemetryConfiguration{
			Enabled:         utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "") != "",
			ApplicationName: "healthcare-api",
		},
	}
}

// Validate checks that the storage backend is known and has the settings it
// cannot start without.
func (c StorageConfig) Validate() error {
	backend, ok := repositories.StorageBackendFrom(c.Backend)
	if !ok {
		return errors.Newf("unknown STORAGE_BACKEND %q, expected postgres, databricks or memory", c.Backend)
	}

	switch backend {
	case repositories.StorageBackendPostgres:
		if !c.Pg.Configured() {
			return errors.New("postgres storage needs PG_CONNECTION_STRING or PG_HOSTNAME")
		}
	case repositories.StorageBackendDatabricks:
		if err := c.databricksClientConfig().Validate(); err != nil {
			return errors.Wrap(err, "databricks storage is not configured")
		}
	}
	return nil
}

func (c StorageConfig) databricksClientConfig() databricks.Config {
	return databricks.Config{
		Host:         c.Databricks.Host,
		Token:        c.Databricks.Token,
		ClientId:     c.Databricks.ClientId,
		ClientSecret: c.Databricks.ClientSecret,
		WarehouseId:  c.Databricks.WarehouseId,
	}
}
