// Package uid generates identifiers: numeric snowflake IDs for stored records
// and UUID strings for correlation and idempotency keys.
package uid

// NumberID produces unique, roughly time-ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID produces unique string identifiers.
type StringID interface {
	Generate() string
}
