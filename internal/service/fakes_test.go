package service

import (
	"context"
	"sort"
	"sync"

	"petsoft/internal/domain"
	"petsoft/internal/repository"
)

// memPets is an in-memory PetRepository that counts every call.
type memPets struct {
	mu    sync.Mutex
	pets  map[string]domain.Pet
	calls int

	// failWrite, when set, is returned by Create, Update and Delete.
	failWrite error
	// afterList runs once ListByOwner has taken its snapshot, without the lock held.
	afterList func()
}

func newMemPets(seed ...domain.Pet) *memPets {
	r := &memPets{pets: make(map[string]domain.Pet)}
	for _, p := range seed {
		r.pets[p.ID] = p
	}
	return r
}

func (r *memPets) Init(context.Context) error { return nil }

func (r *memPets) Create(_ context.Context, pet *domain.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.pets[pet.ID]; ok {
		return repository.ErrDuplicate
	}
	r.pets[pet.ID] = *pet
	return nil
}

func (r *memPets) Update(_ context.Context, pet *domain.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.pets[pet.ID]; !ok {
		return repository.ErrNotFound
	}
	r.pets[pet.ID] = *pet
	return nil
}

func (r *memPets) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.pets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.pets, id)
	return nil
}

func (r *memPets) Get(_ context.Context, id string) (*domain.Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.pets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *memPets) ListByOwner(_ context.Context, ownerID string) ([]domain.Pet, error) {
	r.mu.Lock()
	r.calls++
	var out []domain.Pet
	for _, p := range r.pets {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	hook := r.afterList
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *memPets) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *memPets) get(id string) (domain.Pet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pets[id]
	return p, ok
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]domain.User)}
}

func (r *memUsers) Init(context.Context) error { return nil }

func (r *memUsers) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) SetAccess(_ context.Context, email string, hasAccess bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if u.Email == email {
			u.HasAccess = hasAccess
			r.users[id] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
