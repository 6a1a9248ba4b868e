// Package config loads the service settings from the environment and an optional .env file using Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	SessionConfig
	IdentityConfig
	UploadConfig
	HTTPConfig
}

type mainConfig struct {
	EnvVars
	Session
	Identity
	Upload
	HTTP
}

var _ Config = mainConfig{}

type options struct {
	envFile string
	values  map[string]any
}

// Option customises how Load reads its settings.
type Option func(*options)

// WithEnvFile reads settings from a dotenv file before the environment is consulted.
// A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// WithValues overrides individual keys, taking precedence over the environment.
func WithValues(values map[string]any) Option {
	return func(o *options) {
		if o.values == nil {
			o.values = make(map[string]any)
		}
		for k, v := range values {
			o.values[k] = v
		}
	}
}

// Load builds and validates the configuration. Invalid settings return an error wrapping
// errors.ErrConfiguration; the service must not start with them.
func Load(opts ...Option) (Config, error) {
	o := options{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	if o.envFile != "" {
		v.SetConfigFile(o.envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()
	setDefaults(v)
	for k, val := range o.values {
		v.Set(k, val)
	}

	c := mainConfig{
		EnvVars:  EnvVars{v: v},
		Session:  Session{v: v},
		Identity: Identity{v: v},
		Upload:   Upload{v: v},
		HTTP:     HTTP{v: v},
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "3000")
	v.SetDefault(appNameVar, "NRF Quote")
	v.SetDefault(serviceNameVar, "Nature Restoration Fund")
	v.SetDefault(envVar, EnvDev)
	v.SetDefault(logLevelVar, "info")
	v.SetDefault(logFormatVar, "")

	v.SetDefault(sessionEngineVar, CacheEngineMemory)
	v.SetDefault(sessionTTLVar, "4h")
	v.SetDefault(sessionCookieSecureVar, false)
	v.SetDefault(redisAddrVar, "127.0.0.1:6379")
	v.SetDefault(redisDBVar, 0)
	v.SetDefault(redisKeyPrefixVar, "nrf-quote:")

	v.SetDefault(defraIDEnabledVar, false)
	v.SetDefault(defraIDRedirectURLVar, "http://localhost:3000/login/return")
	v.SetDefault(defraIDRefreshVar, true)

	v.SetDefault(uploaderURLVar, "http://localhost:7337")
	v.SetDefault(uploaderBucketVar, "cdp-uploader-quarantine")
	v.SetDefault(uploaderUseMockVar, false)
	v.SetDefault(backendURLVar, "http://localhost:3001")

	v.SetDefault(httpClientTimeoutVar, "10s")
	v.SetDefault(requestTimeoutVar, "30s")
}

func validate(c mainConfig) error {
	var problems []string

	if len(c.GetCookiePassword()) < minCookiePasswordLength {
		problems = append(problems, fmt.Sprintf("%s must be at least %d characters", sessionCookiePasswordVar, minCookiePasswordLength))
	}
	switch c.GetCacheEngine() {
	case CacheEngineMemory, CacheEngineRedis:
	default:
		problems = append(problems, fmt.Sprintf("%s must be %q or %q", sessionEngineVar, CacheEngineMemory, CacheEngineRedis))
	}
	if c.GetDefraIDEnabled() {
		if c.GetWellKnownURL() == "" {
			problems = append(problems, defraIDWellKnownURLVar+" not configured")
		}
		if c.GetClientID() == "" {
			problems = append(problems, defraIDClientIDVar+" not configured")
		}
		if c.GetClientSecret() == "" {
			problems = append(problems, defraIDClientSecretVar+" not configured")
		}
	}
	if c.GetUseMockUploader() && c.IsProduction() {
		problems = append(problems, uploaderUseMockVar+" must not be enabled in production")
	}

	if len(problems) > 0 {
		return errors.Wrapf(errors.ErrConfiguration, "[config Load] %s", strings.Join(problems, "; "))
	}
	return nil
}
