// Package validator validates request structs through `validate` tags and
// reports failures as a field -> message map keyed in snake_case.
package validator

// Validator validates a struct.
type Validator interface {
	Validate(data any) error
}
