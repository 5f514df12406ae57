package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"petsoft/internal/repository"
)

func newTestUserService() (UserService, *memUsers) {
	repo := newMemUsers()
	return NewUserService(repo, quietLogger(), WithHashCost(bcrypt.MinCost)), repo
}

func TestSignUpAndAuthorize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService()

	user, err := svc.SignUp(ctx, "  Alice@Example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.False(t, user.HasAccess)

	got, err := svc.Authorize(ctx, "ALICE@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestUserService()

	_, err := svc.SignUp(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "alice@example.com", "other")
	requireActionError(t, err, KindConflict, MsgEmailExists)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.Equal(t, 1, repo.count())
}

func TestSignUpInvalidForm(t *testing.T) {
	svc, repo := newTestUserService()

	for _, tc := range []struct{ email, password string }{
		{"", "secret"},
		{"not-an-email", "secret"},
		{"alice@example.com", ""},
	} {
		_, err := svc.SignUp(context.Background(), tc.email, tc.password)
		requireActionError(t, err, KindInvalid, MsgInvalidForm)
	}
	assert.Zero(t, repo.count())
}

func TestAuthorizeRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService()
	_, err := svc.SignUp(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authorize(ctx, "ghost@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authorize(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGrantAccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService()
	user, err := svc.SignUp(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.GrantAccess(ctx, "Alice@Example.com"))
	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAccess)

	assert.Error(t, svc.GrantAccess(ctx, "ghost@example.com"))
	assert.Error(t, svc.GrantAccess(ctx, " "))
}

func TestGetByEmailNormalises(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	created, err := svc.SignUp(ctx, "erin@example.com", "secret")
	require.NoError(t, err)

	got, err := svc.GetByEmail(ctx, "  Erin@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	_, err = svc.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
