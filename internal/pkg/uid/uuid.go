package uid

import "github.com/google/uuid"

// UUID hands out time-ordered version 7 identifiers, so correlation and token
// ids sort by creation time. If the v7 clock source fails it falls back to a
// random version 4 id.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns the canonical 36 character form.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
