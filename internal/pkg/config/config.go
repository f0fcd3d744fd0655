package config

import (
	"io"
	"time"
)

// Config is the read-only view of runtime settings handed to every module.
//
// Keys are dotted paths (for example "modules.otp.expiry_minutes"). Missing
// keys and values that cannot be converted yield the zero value of the
// requested type, so callers are expected to apply their own defaults.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetFloat64(key string) float64

	// GetSecond and GetMinute interpret an integer value as a duration in that unit.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetArray splits a "a,b,c" value. Native YAML lists are returned as-is.
	GetArray(key string) []string
	// GetMap parses a "k1:v1,k2:v2" value.
	GetMap(key string) map[string]string
}
