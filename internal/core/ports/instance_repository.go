package ports

import (
	"context"

	"github.com/sieapi/gateway/internal/core/domain"
)

// InstanceRepository defines persistence for messaging instances.
type InstanceRepository interface {
	Create(ctx context.Context, inst *domain.Instance) (*domain.Instance, error)
	FindByID(ctx context.Context, id string) (*domain.Instance, error)
	// List returns the instances owned by ownerID, or every instance when
	// ownerID is empty.
	List(ctx context.Context, ownerID string) ([]*domain.Instance, error)
	Update(ctx context.Context, inst *domain.Instance) error
	SetConnected(ctx context.Context, id string, connected bool) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}
