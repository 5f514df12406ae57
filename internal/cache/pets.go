package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petsoft/internal/domain"
)

// PetLists caches each owner's rendered pet list until a mutation invalidates it.
//
// Every owner has a generation token that Invalidate replaces. A list is
// stored with the generation read before the database query, and Get ignores
// lists whose generation is no longer current, so a read that raced with a
// write can never be served after the write.
type PetLists struct {
	store Store
	ttl   time.Duration
}

type cachedPets struct {
	Gen  string       `json:"gen"`
	Pets []domain.Pet `json:"pets"`
}

func NewPetLists(store Store, ttl time.Duration) *PetLists {
	return &PetLists{store: store, ttl: ttl}
}

func petListKey(ownerID string) string {
	return "pets:owner:" + ownerID
}

func petGenKey(ownerID string) string {
	return "pets:gen:" + ownerID
}

// Generation returns the owner's current generation, creating one if needed.
// Call it before reading the list that will be passed to Set.
func (c *PetLists) Generation(ctx context.Context, ownerID string) (string, error) {
	raw, ok, err := c.store.Get(ctx, petGenKey(ownerID))
	if err != nil {
		return "", err
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	return c.bump(ctx, ownerID)
}

func (c *PetLists) Get(ctx context.Context, ownerID string) ([]domain.Pet, bool, error) {
	raw, ok, err := c.store.Get(ctx, petListKey(ownerID))
	if err != nil || !ok {
		return nil, false, err
	}
	var entry cachedPets
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached pets: %w", err)
	}

	gen, ok, err := c.store.Get(ctx, petGenKey(ownerID))
	if err != nil || !ok || string(gen) != entry.Gen {
		return nil, false, err
	}
	return entry.Pets, true, nil
}

// Set stores pets under gen, the value Generation returned before they were read.
func (c *PetLists) Set(ctx context.Context, ownerID, gen string, pets []domain.Pet) error {
	raw, err := json.Marshal(cachedPets{Gen: gen, Pets: pets})
	if err != nil {
		return fmt.Errorf("encode pets: %w", err)
	}
	return c.store.Set(ctx, petListKey(ownerID), raw, c.ttl)
}

// Invalidate moves the owner to a new generation and drops the cached list,
// so the next read goes to the database.
func (c *PetLists) Invalidate(ctx context.Context, ownerID string) error {
	if _, err := c.bump(ctx, ownerID); err != nil {
		return err
	}
	return c.store.Delete(ctx, petListKey(ownerID))
}

func (c *PetLists) bump(ctx context.Context, ownerID string) (string, error) {
	gen := uuid.NewString()
	if err := c.store.Set(ctx, petGenKey(ownerID), []byte(gen), 0); err != nil {
		return "", fmt.Errorf("set pet list generation: %w", err)
	}
	return gen, nil
}
