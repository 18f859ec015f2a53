package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/healthfin/healthcare-api/usecases"
)

const (
	defaultHost           = "0.0.0.0"
	defaultRequestTimeout = 30 * time.Second
)

type Option func(*options)

func WithLocalTest(localTest bool) Option {
	return func(o *options) {
		o.localTest = localTest
	}
}

type options struct {
	localTest bool
}

func applyOptions(opts []Option) *options {
	o := &options{
		localTest: false,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewServer registers the routes on the router and builds the http server.
// Open chat connections are told to go away when the server shuts down.
func NewServer(
	ctx context.Context,
	router *gin.Engine,
	conf Configuration,
	uc usecases.Usecases,
	opts ...Option,
) (*http.Server, error) {
	o := applyOptions(opts)

	if conf.DefaultTimeout <= 0 {
		conf.DefaultTimeout = defaultRequestTimeout
	}

	docs, err := newApiDocs(ctx, conf.AppVersion)
	if err != nil {
		return nil, err
	}
	connections := NewConnectionManager()
	addRoutes(ctx, router, conf, uc, docs, connections)

	host := conf.Host
	switch {
	case o.localTest:
		host = "localhost"
	case host == "":
		host = defaultHost
	}

	// websocket upgrades clear these deadlines on their connection
	maxTimeout := conf.DefaultTimeout + 5*time.Second

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", host, conf.Port),
		ReadHeaderTimeout: maxTimeout,
		WriteTimeout:      maxTimeout,
		ReadTimeout:       maxTimeout,
		IdleTimeout:       maxTimeout,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
	}
	server.RegisterOnShutdown(connections.CloseAll)

	return server, nil
}
