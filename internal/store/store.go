package store

import (
	"context"

	"visitor-desk/internal/models"
)

// Store persists the whole registration list under a single key.
// Load returns an empty, non-nil slice together with any error so callers
// can log and carry on with nothing loaded.
type Store interface {
	Load(ctx context.Context) ([]models.Registration, error)
	Save(ctx context.Context, regs []models.Registration) error
}
