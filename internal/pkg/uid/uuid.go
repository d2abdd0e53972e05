// Package uid generates string identifiers.
package uid

import "github.com/google/uuid"

// StringID generates unique string ids.
type StringID interface {
	Generate() string
}

// UUID generates RFC 9562 UUID strings, time ordered when possible.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString() // fallback: uuidV4
	}
	return id.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
