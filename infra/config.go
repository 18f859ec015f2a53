package infra

import (
	"fmt"
	"time"
)

type PgConfig struct {
	ConnectionString   string
	Database           string
	Hostname           string
	Password           string
	Port               string
	User               string
	MaxPoolConnections int
	SslMode            string
}

func (config PgConfig) GetConnectionString() string {
	if config.ConnectionString != "" {
		return config.ConnectionString
	}

	if config.SslMode == "" {
		config.SslMode = "prefer"
	}
	if config.Port == "" {
		config.Port = "5432"
	}

	return fmt.Sprintf("host=%s user=%s password=%s database=%s sslmode=%s port=%s",
		config.Hostname, config.User, config.Password, config.Database, config.SslMode, config.Port)
}

// Configured is true when enough is set to reach a database.
func (config PgConfig) Configured() bool {
	return config.ConnectionString != "" || config.Hostname != ""
}

type DatabricksConfig struct {
	Host          string
	Token         string
	ClientId      string
	ClientSecret  string
	WarehouseId   string
	SessionsTable string
	TurnsTable    string
}

type SessionCacheConfig struct {
	Size int
	Ttl  time.Duration
}

type TelemetryConfiguration struct {
	Enabled         bool
	ApplicationName string
	SamplingMap     TelemetrySamplingMap
}

type TelemetrySamplingMap struct {
	HttpRoutes map[string]float64
}
