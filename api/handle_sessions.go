package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthfin/healthcare-api/dto"
	"github.com/healthfin/healthcare-api/pure_utils"
	"github.com/healthfin/healthcare-api/usecases"
)

func handleListSessions(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var query dto.SessionListQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}

		usecase := uc.NewSessionUsecase()
		sessions, err := usecase.ListSessions(ctx, query.Filter())
		if presentError(ctx, c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.AdaptSessionListDto(sessions))
	}
}

func handleGetSession(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var uri dto.SessionUriInput
		if err := c.ShouldBindUri(&uri); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}
		var query dto.SessionDetailQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}

		usecase := uc.NewSessionUsecase()
		detail, err := usecase.GetSession(ctx, uri.SessionId, pure_utils.PtrValueOrDefault(query.IncludeTurns, true))
		if presentError(ctx, c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.AdaptSessionDetailDto(detail.Session, detail.Turns))
	}
}

func handleGetSessionHistory(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var uri dto.SessionUriInput
		if err := c.ShouldBindUri(&uri); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}
		var query dto.SessionHistoryQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}

		usecase := uc.NewSessionUsecase()
		turns, err := usecase.GetHistory(ctx, uri.SessionId, query.Limit)
		if presentError(ctx, c, err) {
			return
		}

		c.JSON(http.StatusOK, pure_utils.Map(turns, dto.AdaptTurnDto))
	}
}

func handleDeleteSession(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var uri dto.SessionUriInput
		if err := c.ShouldBindUri(&uri); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}

		usecase := uc.NewSessionUsecase()
		message, err := usecase.DeleteSession(ctx, uri.SessionId)
		if presentError(ctx, c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.DeleteSessionDto{Success: true, Message: message})
	}
}

func handleGetSessionState(uc usecases.Usecases) func(c *gin.Context) {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var uri dto.SessionUriInput
		if err := c.ShouldBindUri(&uri); err != nil {
			presentError(ctx, c, bindingError(err))
			return
		}

		usecase := uc.NewSessionUsecase()
		state, err := usecase.GetState(ctx, uri.SessionId)
		if presentError(ctx, c, err) {
			return
		}

		c.JSON(http.StatusOK, dto.SessionStateDto{SessionId: uri.SessionId, State: state})
	}
}
