package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues random v4 ids for users, session tokens and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
