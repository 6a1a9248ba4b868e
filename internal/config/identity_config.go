package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	defraIDEnabledVar      = "DEFRA_ID_ENABLED"
	defraIDWellKnownURLVar = "DEFRA_ID_WELL_KNOWN_URL"
	defraIDClientIDVar     = "DEFRA_ID_CLIENT_ID"
	defraIDClientSecretVar = "DEFRA_ID_CLIENT_SECRET"
	defraIDServiceIDVar    = "DEFRA_ID_SERVICE_ID"
	defraIDRedirectURLVar  = "DEFRA_ID_REDIRECT_URL"
	defraIDRefreshVar      = "DEFRA_ID_REFRESH_TOKENS"
)

type IdentityConfig interface {
	GetDefraIDEnabled() bool
	GetWellKnownURL() string
	GetClientID() string
	GetClientSecret() string
	GetServiceID() string
	GetRedirectURL() string
	GetRefreshTokens() bool
	GetAuthFlowTimeout() time.Duration
	GetClockSkew() time.Duration
}

type Identity struct {
	v *viper.Viper
}

var _ IdentityConfig = Identity{}

func (i Identity) GetDefraIDEnabled() bool {
	return i.v.GetBool(defraIDEnabledVar)
}

func (i Identity) GetWellKnownURL() string {
	return i.v.GetString(defraIDWellKnownURLVar)
}

func (i Identity) GetClientID() string {
	return i.v.GetString(defraIDClientIDVar)
}

func (i Identity) GetClientSecret() string {
	return i.v.GetString(defraIDClientSecretVar)
}

func (i Identity) GetServiceID() string {
	return i.v.GetString(defraIDServiceIDVar)
}

func (i Identity) GetRedirectURL() string {
	return i.v.GetString(defraIDRedirectURLVar)
}

func (i Identity) GetRefreshTokens() bool {
	return i.v.GetBool(defraIDRefreshVar)
}

// GetAuthFlowTimeout bounds the time between sign-in and the provider callback.
func (Identity) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute
}

func (Identity) GetClockSkew() time.Duration {
	return 60 * time.Second
}
