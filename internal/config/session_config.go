package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	sessionEngineVar         = "SESSION_CACHE_ENGINE"
	sessionTTLVar            = "SESSION_CACHE_TTL"
	sessionCookiePasswordVar = "SESSION_COOKIE_PASSWORD"
	sessionCookieSecureVar   = "SESSION_COOKIE_SECURE"
	redisAddrVar             = "REDIS_ADDR"
	redisPasswordVar         = "REDIS_PASSWORD"
	redisDBVar               = "REDIS_DB"
	redisKeyPrefixVar        = "REDIS_KEY_PREFIX"

	minCookiePasswordLength = 32
)

const (
	CacheEngineMemory = "memory"
	CacheEngineRedis  = "redis"
)

type SessionConfig interface {
	GetCacheEngine() string
	GetSessionTTL() time.Duration
	GetCookiePassword() string
	GetCookieSecure() bool
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

func (s Session) GetCacheEngine() string {
	return s.v.GetString(sessionEngineVar)
}

func (s Session) GetSessionTTL() time.Duration {
	d := s.v.GetDuration(sessionTTLVar)
	if d <= 0 {
		return 4 * time.Hour
	}
	return d
}

func (s Session) GetCookiePassword() string {
	return s.v.GetString(sessionCookiePasswordVar)
}

func (s Session) GetCookieSecure() bool {
	return s.v.GetBool(sessionCookieSecureVar)
}

func (s Session) GetRedisAddr() string {
	return s.v.GetString(redisAddrVar)
}

func (s Session) GetRedisPassword() string {
	return s.v.GetString(redisPasswordVar)
}

func (s Session) GetRedisDB() int {
	return s.v.GetInt(redisDBVar)
}

func (s Session) GetRedisKeyPrefix() string {
	return s.v.GetString(redisKeyPrefixVar)
}
