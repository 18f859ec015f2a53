package usecases

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/healthfin/healthcare-api/models"
)

type sessionRepository interface {
	GetSession(ctx context.Context, sessionId string) (models.Session, error)
	ListSessions(ctx context.Context, filter models.SessionListFilter) ([]models.SessionSummary, error)
	CountSessions(ctx context.Context, userId string) (int, error)
	DeleteSession(ctx context.Context, sessionId string) error
	GetTurns(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error)
}

type SessionUsecase struct {
	sessionRepository sessionRepository
}

type SessionDetail struct {
	Session models.Session
	Turns   []models.Turn
}

func (u *SessionUsecase) repository() (sessionRepository, error) {
	if isNilRepository(u.sessionRepository) {
		return nil, models.ErrStorageNotInitialized
	}
	return u.sessionRepository, nil
}

func (u *SessionUsecase) ListSessions(ctx context.Context, filter models.SessionListFilter) (models.SessionList, error) {
	repo, err := u.repository()
	if err != nil {
		return models.SessionList{}, err
	}
	if filter.UserId == "" {
		return models.SessionList{}, errors.Wrap(models.BadParameterError, "user_id is required")
	}
	if filter.Limit < 1 || filter.Limit > models.SessionListMaxLimit {
		return models.SessionList{}, errors.Wrapf(models.BadParameterError,
			"limit must be between 1 and %d", models.SessionListMaxLimit)
	}
	if filter.Offset < 0 {
		return models.SessionList{}, errors.Wrap(models.BadParameterError, "offset must be positive")
	}

	var (
		sessions []models.SessionSummary
		total    int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		sessions, err = repo.ListSessions(groupCtx, filter)
		return err
	})
	group.Go(func() (err error) {
		total, err = repo.CountSessions(groupCtx, filter.UserId)
		return err
	})
	if err := group.Wait(); err != nil {
		return models.SessionList{}, err
	}

	return models.SessionList{
		Sessions: sessions,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

func (u *SessionUsecase) GetSession(ctx context.Context, sessionId string, includeTurns bool) (SessionDetail, error) {
	repo, err := u.repository()
	if err != nil {
		return SessionDetail{}, err
	}

	session, err := repo.GetSession(ctx, sessionId)
	if err != nil {
		return SessionDetail{}, err
	}

	detail := SessionDetail{Session: session, Turns: []models.Turn{}}
	if includeTurns {
		turns, err := repo.GetTurns(ctx, sessionId, nil)
		if err != nil {
			return SessionDetail{}, err
		}
		detail.Turns = turns
	}
	return detail, nil
}

func (u *SessionUsecase) GetHistory(ctx context.Context, sessionId string, limit *int) ([]models.Turn, error) {
	repo, err := u.repository()
	if err != nil {
		return nil, err
	}
	if limit != nil && (*limit < 1 || *limit > models.SessionListMaxLimit) {
		return nil, errors.Wrapf(models.BadParameterError,
			"limit must be between 1 and %d", models.SessionListMaxLimit)
	}

	if _, err := repo.GetSession(ctx, sessionId); err != nil {
		return nil, err
	}
	return repo.GetTurns(ctx, sessionId, limit)
}

// DeleteSession returns the confirmation message shown to the user.
func (u *SessionUsecase) DeleteSession(ctx context.Context, sessionId string) (string, error) {
	repo, err := u.repository()
	if err != nil {
		return "", err
	}

	if _, err := repo.GetSession(ctx, sessionId); err != nil {
		return "", err
	}
	if err := repo.DeleteSession(ctx, sessionId); err != nil {
		return "", err
	}
	return fmt.Sprintf("Session %s deleted successfully", sessionId), nil
}

func (u *SessionUsecase) GetState(ctx context.Context, sessionId string) (models.AgentState, error) {
	repo, err := u.repository()
	if err != nil {
		return nil, err
	}

	session, err := repo.GetSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.State == nil {
		return models.AgentState{}, nil
	}
	return session.State, nil
}

// isNilRepository catches typed nil pointers stored in an interface.
func isNilRepository(repo any) bool {
	if repo == nil {
		return true
	}
	v := reflect.ValueOf(repo)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
