package api

import (
	"time"
)

type Configuration struct {
	Env                 string
	AppName             string
	AppVersion          string
	Host                string
	Port                string
	RequestLoggingLevel string
	CorsOrigins         []string
	DefaultTimeout      time.Duration
	MaxRequestBodySize  int64

	// WsMessagesPerSecond caps the incoming messages of one websocket
	// connection, zero disables the limit.
	WsMessagesPerSecond float64
	WsMessagesBurst     int
}

func (conf Configuration) IsDevelopment() bool {
	return conf.Env == "development"
}
