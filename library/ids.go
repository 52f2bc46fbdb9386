package library

import "github.com/google/uuid"

// IDGenerator produces borrow record ids.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator issues time-ordered UUIDv7 strings. Within one process the
// uuid package keeps V7 values strictly increasing, so two records created
// in the same millisecond still get distinct, ordered ids.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
