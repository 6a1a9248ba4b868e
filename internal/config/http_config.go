package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	httpClientTimeoutVar = "HTTP_CLIENT_TIMEOUT"
	requestTimeoutVar    = "REQUEST_TIMEOUT"
)

type HTTPConfig interface {
	GetHTTPClientTimeout() time.Duration
	GetRequestTimeout() time.Duration
}

type HTTP struct {
	v *viper.Viper
}

var _ HTTPConfig = HTTP{}

func (h HTTP) GetHTTPClientTimeout() time.Duration {
	if d := h.v.GetDuration(httpClientTimeoutVar); d > 0 {
		return d
	}
	return 10 * time.Second
}

func (h HTTP) GetRequestTimeout() time.Duration {
	if d := h.v.GetDuration(requestTimeoutVar); d > 0 {
		return d
	}
	return 30 * time.Second
}
