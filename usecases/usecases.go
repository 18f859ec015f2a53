package usecases

import (
	"time"

	"github.com/healthfin/healthcare-api/repositories"
	"github.com/healthfin/healthcare-api/usecases/workflow"
)

const DefaultStreamTokenDelay = 20 * time.Millisecond

type Usecases struct {
	sessionRepository repositories.SessionRepository
	workflow          workflow.Workflow
	appName           string
	apiVersion        string
	storageBackend    repositories.StorageBackend
	streamTokenDelay  time.Duration
}

type Option func(*options)

func WithAppName(appName string) Option {
	return func(o *options) {
		o.appName = appName
	}
}

func WithApiVersion(apiVersion string) Option {
	return func(o *options) {
		o.apiVersion = apiVersion
	}
}

func WithStorageBackend(backend repositories.StorageBackend) Option {
	return func(o *options) {
		o.storageBackend = backend
	}
}

func WithStreamTokenDelay(delay time.Duration) Option {
	return func(o *options) {
		o.streamTokenDelay = &delay
	}
}

type options struct {
	appName          string
	apiVersion       string
	storageBackend   repositories.StorageBackend
	streamTokenDelay *time.Duration
}

// NewUsecases wires the usecases. sessionRepository may be nil when the
// storage could not be set up, storage backed operations then report
// models.ErrStorageNotInitialized.
func NewUsecases(sessionRepository repositories.SessionRepository, wf workflow.Workflow, opts ...Option) Usecases {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	delay := DefaultStreamTokenDelay
	if o.streamTokenDelay != nil {
		delay = *o.streamTokenDelay
	}

	return Usecases{
		sessionRepository: sessionRepository,
		workflow:          wf,
		appName:           o.appName,
		apiVersion:        o.apiVersion,
		storageBackend:    o.storageBackend,
		streamTokenDelay:  delay,
	}
}

func (usecases *Usecases) NewVersionUsecase() VersionUsecase {
	return VersionUsecase{
		AppName:    usecases.appName,
		ApiVersion: usecases.apiVersion,
	}
}

func (usecases *Usecases) NewHealthUsecase() HealthUsecase {
	return HealthUsecase{
		healthRepository: usecases.sessionRepository,
	}
}

func (usecases *Usecases) NewSessionUsecase() SessionUsecase {
	return SessionUsecase{
		sessionRepository: usecases.sessionRepository,
	}
}

func (usecases *Usecases) NewChatUsecase() ChatUsecase {
	return ChatUsecase{
		sessionRepository: usecases.sessionRepository,
		workflow:          usecases.workflow,
		storageBackend:    usecases.storageBackend,
		tokenDelay:        usecases.streamTokenDelay,
		now:               time.Now,
	}
}
