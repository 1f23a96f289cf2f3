package server

import (
	"context"
)

// Cache defines the interface for caching operations
type Cache interface {
	GetWorkshop(ctx context.Context, id string) (*Workshop, error)
	SetWorkshop(ctx context.Context, workshop *Workshop) error
	DeleteWorkshop(ctx context.Context, id string) error
}

// NoOpCache implements the Cache interface but does nothing
type NoOpCache struct{}

// GetWorkshop returns a not found error
func (c *NoOpCache) GetWorkshop(ctx context.Context, id string) (*Workshop, error) {
	return nil, ErrNotFound
}

// SetWorkshop does nothing
func (c *NoOpCache) SetWorkshop(ctx context.Context, workshop *Workshop) error {
	return nil
}

// DeleteWorkshop does nothing
func (c *NoOpCache) DeleteWorkshop(ctx context.Context, id string) error {
	return nil
}
