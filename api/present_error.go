package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/models"
	"github.com/healthfin/healthcare-api/utils"
)

func presentError(ctx context.Context, c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	logger := utils.LoggerFromContext(ctx)
	err = dto.AdaptValidationErrors(err)

	switch {
	case errors.Is(err, models.BadParameterError):
		logger.InfoContext(ctx, fmt.Sprintf("BadParameterError: %v", err))
		c.JSON(http.StatusBadRequest, dto.ErrorDto{Detail: models.PublicMessage(err)})

	case errors.Is(err, models.NotFoundError):
		logger.InfoContext(ctx, fmt.Sprintf("NotFoundError: %v", err))
		c.JSON(http.StatusNotFound, dto.ErrorDto{Detail: models.PublicMessage(err)})

	case errors.Is(err, models.UnavailableError):
		logger.WarnContext(ctx, fmt.Sprintf("UnavailableError: %v", err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorDto{Detail: models.PublicMessage(err)})

	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, fmt.Sprintf("Deadline exceeded: %v", err))
		c.JSON(http.StatusRequestTimeout, dto.ErrorDto{Detail: "Request timeout"})

	default:
		utils.LogAndReportSentryError(ctx, err)
		c.JSON(http.StatusInternalServerError, dto.ErrorDto{Detail: "An unexpected error occurred"})
	}
	return true
}

// bindingError marks query and path parsing failures as bad parameters.
func bindingError(err error) error {
	adapted := dto.AdaptValidationErrors(err)
	if errors.Is(adapted, models.BadParameterError) {
		return adapted
	}
	return errors.Wrap(models.BadParameterError, err.Error())
}
