package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	timeout "github.com/vearne/gin-timeout"

	"github.com/healthfin/healthcare-api/usecases"
)

func timeoutMiddleware(duration time.Duration) gin.HandlerFunc {
	return timeout.Timeout(
		timeout.WithTimeout(duration),
		timeout.WithErrorHttpCode(http.StatusRequestTimeout),
		timeout.WithDefaultMsg(`{"detail":"Request timeout"}`),
	)
}

// addRoutes registers every endpoint. The REST routes run under the request
// timeout, the websocket routes cannot since they hijack the connection.
func addRoutes(ctx context.Context, r *gin.Engine, conf Configuration, uc usecases.Usecases,
	docs *apiDocs, connections *ConnectionManager,
) {
	tom := timeoutMiddleware(conf.DefaultTimeout)

	r.GET("/", tom, handleRoot(uc))
	r.GET("/health", tom, handleHealth(uc))
	r.GET("/health/live", handleLiveness)
	r.GET("/health/ready", tom, handleReadiness(uc))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/docs", docs.handlePage)
	r.GET("/docs/openapi.yaml", docs.handleYaml)
	r.GET("/docs/openapi.json", docs.handleJson)
	r.GET("/docs/ws-schema.json", docs.handleWsSchema)

	sessions := r.Group("/api/sessions", tom)
	sessions.GET("", handleListSessions(uc))
	sessions.GET("/:session_id", handleGetSession(uc))
	sessions.GET("/:session_id/history", handleGetSessionHistory(uc))
	sessions.GET("/:session_id/state", handleGetSessionState(uc))
	sessions.DELETE("/:session_id", handleDeleteSession(uc))

	upgrader := newUpgrader(ctx, conf)
	ws := r.Group("/ws")
	ws.GET("/chat", handleChat(uc, connections, upgrader, conf))
	ws.GET("/chat/:session_id", handleChat(uc, connections, upgrader, conf))
}
