package service

import "github.com/google/uuid"

// UUIDGenerator generates unique identifiers
type UUIDGenerator interface {
	Generate() string
}

// DefaultUUIDGenerator generates UUIDs using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) Generate() string {
	return uuid.NewString()
}
