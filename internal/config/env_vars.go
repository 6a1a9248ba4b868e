package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	serviceNameVar = "SERVICE_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	logFormatVar   = "LOG_FORMAT"
)

const (
	EnvDev        = "DEV"
	EnvTest       = "test"
	EnvProduction = "production"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetServiceName() string
	GetEnv() string
	GetLogLevel() string
	GetLogFormat() string
	IsDev() bool
	IsTest() bool
	IsProduction() bool
}

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(portEnvVar)
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

// GetServiceName is the public service name used in headings and page titles.
func (e EnvVars) GetServiceName() string {
	return e.v.GetString(serviceNameVar)
}

func (e EnvVars) GetEnv() string {
	return e.v.GetString(envVar)
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelVar)
}

// GetLogFormat returns "json" or "pretty". Unset means pretty in DEV and json elsewhere.
func (e EnvVars) GetLogFormat() string {
	if f := e.v.GetString(logFormatVar); f != "" {
		return f
	}
	if e.IsDev() {
		return "pretty"
	}
	return "json"
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == EnvDev
}

func (e EnvVars) IsTest() bool {
	return e.GetEnv() == EnvTest
}

func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == EnvProduction
}
