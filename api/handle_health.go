package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/usecases"
)

func handleRoot(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		info := uc.NewVersionUsecase().ServiceInfo()
		c.JSON(http.StatusOK, dto.ServiceInfoDto{
			Service: info.Service,
			Version: info.Version,
			Status:  info.Status,
		})
	}
}

// handleHealth always answers 200, a failing storage only degrades the status.
func handleHealth(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		usecase := uc.NewHealthUsecase()
		status := usecase.GetHealthStatus(c.Request.Context())
		c.JSON(http.StatusOK, dto.AdaptHealthDto(status))
	}
}

func handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ProbeDto{Status: "alive"})
}

func handleReadiness(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		usecase := uc.NewHealthUsecase()
		if !usecase.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, dto.ProbeDto{Status: "not_ready"})
			return
		}
		c.JSON(http.StatusOK, dto.ProbeDto{Status: "ready"})
	}
}
