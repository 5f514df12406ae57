package repository

import (
	"context"

	"petsoft/internal/domain"
)

// PetRepository exposes single-record persistence operations for pets.
type PetRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, pet *domain.Pet) error
	Update(ctx context.Context, pet *domain.Pet) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Pet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Pet, error)
}
