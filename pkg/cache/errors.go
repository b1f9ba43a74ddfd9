package cache

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrEncode                       = errors.New("cache: failed to encode value")
	ErrDecode                       = errors.New("cache: failed to decode value")
)
