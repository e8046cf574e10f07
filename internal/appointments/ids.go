package appointments

import (
	"errors"

	"github.com/google/uuid"
)

const maxIDAttempts = 5

// IDGenerator produces appointment identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string {
	return f()
}

// UniqueID draws ids from gen until one is unused by existing.
func UniqueID(gen IDGenerator, existing []Appointment) (string, error) {
	used := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		used[a.ID] = struct{}{}
	}
	for i := 0; i < maxIDAttempts; i++ {
		id := gen.NewID()
		if id == "" {
			continue
		}
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}
	return "", errors.New("appointments: could not generate a unique id")
}
