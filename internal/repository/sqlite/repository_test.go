package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsoft/internal/domain"
	"petsoft/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "petsoft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupRepos(t *testing.T) (repository.UserRepository, repository.PetRepository) {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	pets := NewPetRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, pets.Init(ctx))
	// Init is idempotent.
	require.NoError(t, users.Init(ctx))
	require.NoError(t, pets.Init(ctx))
	return users, pets
}

func createUser(t *testing.T, users repository.UserRepository, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Email: email, PasswordHash: "hash"}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users, _ := setupRepos(t)

	u := createUser(t, users, "alice@example.com")
	assert.False(t, u.CreatedAt.IsZero())

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.False(t, got.HasAccess)

	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	dup := &domain.User{ID: uuid.NewString(), Email: "alice@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrDuplicate)
}

func TestUserRepositorySetAccess(t *testing.T) {
	ctx := context.Background()
	users, _ := setupRepos(t)
	u := createUser(t, users, "bob@example.com")

	require.NoError(t, users.SetAccess(ctx, "bob@example.com", true))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAccess)

	assert.ErrorIs(t, users.SetAccess(ctx, "ghost@example.com", true), repository.ErrNotFound)
}

func TestPetRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	users, pets := setupRepos(t)
	owner := createUser(t, users, "alice@example.com")

	pet := &domain.Pet{
		ID:        uuid.NewString(),
		Name:      "Rex",
		OwnerName: "Alice",
		ImageURL:  domain.DefaultPetImage,
		Age:       3,
		OwnerID:   owner.ID,
	}
	require.NoError(t, pets.Create(ctx, pet))

	got, err := pets.Get(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Name)
	assert.Equal(t, owner.ID, got.OwnerID)

	pet.Name = "Rexy"
	pet.Age = 4
	require.NoError(t, pets.Update(ctx, pet))
	got, err = pets.Get(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rexy", got.Name)
	assert.Equal(t, 4, got.Age)

	require.NoError(t, pets.Delete(ctx, pet.ID))
	_, err = pets.Get(ctx, pet.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, pets.Delete(ctx, pet.ID), repository.ErrNotFound)
	assert.ErrorIs(t, pets.Update(ctx, pet), repository.ErrNotFound)
}

func TestPetRepositoryListByOwner(t *testing.T) {
	ctx := context.Background()
	users, pets := setupRepos(t)
	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	for _, name := range []string{"Rex", "Milo"} {
		require.NoError(t, pets.Create(ctx, &domain.Pet{ID: uuid.NewString(), Name: name, OwnerName: "Alice", ImageURL: domain.DefaultPetImage, Age: 1, OwnerID: alice.ID}))
	}
	require.NoError(t, pets.Create(ctx, &domain.Pet{ID: uuid.NewString(), Name: "Luna", OwnerName: "Bob", ImageURL: domain.DefaultPetImage, Age: 2, OwnerID: bob.ID}))

	list, err := pets.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		assert.Equal(t, alice.ID, p.OwnerID)
	}

	list, err = pets.ListByOwner(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPetRepositoryRequiresOwner(t *testing.T) {
	_, pets := setupRepos(t)
	err := pets.Create(context.Background(), &domain.Pet{ID: uuid.NewString(), Name: "Stray", OwnerName: "Nobody", ImageURL: domain.DefaultPetImage, Age: 1, OwnerID: uuid.NewString()})
	assert.Error(t, err)
}
