package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsoft/internal/auth"
	"petsoft/internal/cache"
	"petsoft/internal/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sessionCtx(userID string) context.Context {
	return auth.WithSession(context.Background(), auth.Session{ID: uuid.NewString(), UserID: userID})
}

func validInput() domain.PetInput {
	return domain.PetInput{Name: "Rex", OwnerName: "Alice", Age: 3, Notes: "Loves walks"}
}

type petFixture struct {
	svc   PetService
	repo  *memPets
	lists *cache.PetLists
	alice string
	bob   string
	pet   domain.Pet
}

func newPetFixture(t *testing.T) *petFixture {
	t.Helper()
	alice, bob := uuid.NewString(), uuid.NewString()
	pet := domain.Pet{
		ID: uuid.NewString(), Name: "Rex", OwnerName: "Alice",
		ImageURL: domain.DefaultPetImage, Age: 3, OwnerID: alice,
	}
	repo := newMemPets(pet)
	lists := cache.NewPetLists(cache.NewMemoryStore(), time.Minute)
	return &petFixture{
		svc:   NewPetService(repo, lists, PetConfig{Logger: quietLogger()}),
		repo:  repo,
		lists: lists,
		alice: alice,
		bob:   bob,
		pet:   pet,
	}
}

func requireActionError(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var ae *ActionError
	require.True(t, errors.As(err, &ae), "expected *ActionError, got %v", err)
	assert.Equal(t, kind, ae.Kind)
	assert.Equal(t, msg, ae.Message)
}

func TestActionsRequireSession(t *testing.T) {
	f := newPetFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.AddPet(ctx, validInput()), auth.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.EditPet(ctx, f.pet.ID, validInput()), auth.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.CheckoutPet(ctx, f.pet.ID), auth.ErrUnauthenticated)
	_, err := f.svc.ListPets(ctx)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Zero(t, f.repo.callCount())
}

func TestAddPetBindsOwnerFromSession(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.bob)

	require.NoError(t, f.svc.AddPet(ctx, validInput()))

	pets, err := f.svc.ListPets(ctx)
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Equal(t, f.bob, pets[0].OwnerID)
	assert.Equal(t, domain.DefaultPetImage, pets[0].ImageURL)
	_, err = uuid.Parse(pets[0].ID)
	assert.NoError(t, err)
}

func TestAddPetInvalidData(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	for name, raw := range map[string]any{
		"nil":         nil,
		"empty name":  domain.PetInput{OwnerName: "Alice", Age: 1},
		"zero age":    domain.PetInput{Name: "Rex", OwnerName: "Alice"},
		"bad image":   domain.PetInput{Name: "Rex", OwnerName: "Alice", Age: 1, ImageURL: "nope"},
		"wrong shape": 42,
	} {
		t.Run(name, func(t *testing.T) {
			requireActionError(t, f.svc.AddPet(ctx, raw), KindInvalid, MsgInvalidPetData)
		})
	}
	assert.Zero(t, f.repo.callCount())
}

func TestAddPetPersistenceFailure(t *testing.T) {
	f := newPetFixture(t)
	f.repo.failWrite = errors.New("disk full")

	err := f.svc.AddPet(sessionCtx(f.alice), validInput())
	requireActionError(t, err, KindPersistence, MsgCouldNotAdd)
}

func TestMalformedIDsNeverReachStorage(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	bad := []any{
		"", "abc", 42, nil,
		"7D1E2F3A-4B5C-4D6E-8F9A-0B1C2D3E4F5A",
		"{7d1e2f3a-4b5c-4d6e-8f9a-0b1c2d3e4f5a}",
		"7d1e2f3a4b5c4d6e8f9a0b1c2d3e4f5a",
	}
	for _, id := range bad {
		requireActionError(t, f.svc.EditPet(ctx, id, validInput()), KindInvalid, MsgInvalidPetData)
		requireActionError(t, f.svc.CheckoutPet(ctx, id), KindInvalid, MsgInvalidPetData)
	}
	assert.Zero(t, f.repo.callCount())
}

func TestEditPet(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	in := domain.PetInput{Name: "Rexy", OwnerName: "Alice B", Age: 4, Notes: "older now"}
	require.NoError(t, f.svc.EditPet(ctx, f.pet.ID, in))

	got, ok := f.repo.get(f.pet.ID)
	require.True(t, ok)
	assert.Equal(t, "Rexy", got.Name)
	assert.Equal(t, "Alice B", got.OwnerName)
	assert.Equal(t, 4, got.Age)
	assert.Equal(t, f.alice, got.OwnerID)
	assert.Equal(t, f.pet.ID, got.ID)
}

func TestEditPetOtherUser(t *testing.T) {
	f := newPetFixture(t)

	err := f.svc.EditPet(sessionCtx(f.bob), f.pet.ID, domain.PetInput{Name: "Stolen", OwnerName: "Bob", Age: 1})
	requireActionError(t, err, KindForbidden, MsgNotAuthorized)

	got, _ := f.repo.get(f.pet.ID)
	assert.Equal(t, f.pet, got)
}

func TestCheckoutPet(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	require.NoError(t, f.svc.CheckoutPet(ctx, f.pet.ID))
	_, ok := f.repo.get(f.pet.ID)
	assert.False(t, ok)

	requireActionError(t, f.svc.CheckoutPet(ctx, f.pet.ID), KindNotFound, MsgPetNotFound)
}

func TestCheckoutPetOtherUser(t *testing.T) {
	f := newPetFixture(t)

	requireActionError(t, f.svc.CheckoutPet(sessionCtx(f.bob), f.pet.ID), KindForbidden, MsgNotAuthorized)
	_, ok := f.repo.get(f.pet.ID)
	assert.True(t, ok)
}

func TestEditUnknownPet(t *testing.T) {
	f := newPetFixture(t)
	err := f.svc.EditPet(sessionCtx(f.alice), uuid.NewString(), validInput())
	requireActionError(t, err, KindNotFound, MsgPetNotFound)
}

func TestListPetsUsesAndInvalidatesCache(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	first, err := f.svc.ListPets(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	calls := f.repo.callCount()

	_, err = f.svc.ListPets(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, f.repo.callCount(), "second read should be served from cache")

	require.NoError(t, f.svc.AddPet(ctx, domain.PetInput{Name: "Milo", OwnerName: "Alice", Age: 1}))
	_, cached, err := f.lists.Get(ctx, f.alice)
	require.NoError(t, err)
	assert.False(t, cached)

	after, err := f.svc.ListPets(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestListPetsDoesNotCacheListReadBeforeWrite(t *testing.T) {
	f := newPetFixture(t)
	ctx := sessionCtx(f.alice)

	listed := make(chan struct{})
	release := make(chan struct{})
	f.repo.afterList = func() {
		f.repo.mu.Lock()
		f.repo.afterList = nil
		f.repo.mu.Unlock()
		close(listed)
		<-release
	}

	done := make(chan []domain.Pet)
	go func() {
		pets, err := f.svc.ListPets(ctx)
		assert.NoError(t, err)
		done <- pets
	}()

	<-listed
	require.NoError(t, f.svc.AddPet(ctx, domain.PetInput{Name: "Milo", OwnerName: "Alice", Age: 1}))
	close(release)

	stale := <-done
	assert.Len(t, stale, 1)

	fresh, err := f.svc.ListPets(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestListPetsEmptyIsNotNil(t *testing.T) {
	f := newPetFixture(t)
	pets, err := f.svc.ListPets(sessionCtx(f.bob))
	require.NoError(t, err)
	assert.NotNil(t, pets)
	assert.Empty(t, pets)
}

func TestGetPet(t *testing.T) {
	f := newPetFixture(t)

	got, err := f.svc.GetPet(sessionCtx(f.alice), f.pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Name)

	_, err = f.svc.GetPet(sessionCtx(f.bob), f.pet.ID)
	requireActionError(t, err, KindForbidden, MsgNotAuthorized)
}

func TestDelayHonoursCancellation(t *testing.T) {
	f := newPetFixture(t)
	svc := NewPetService(f.repo, f.lists, PetConfig{Delay: time.Hour, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(sessionCtx(f.alice))
	cancel()

	err := svc.CheckoutPet(ctx, f.pet.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.repo.callCount())
}
