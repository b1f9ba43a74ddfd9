package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/camarasaas/portal/pkg/auth"
	"github.com/camarasaas/portal/pkg/validator"
)

func TestUsersCreate(t *testing.T) {
	t.Parallel()

	t.Run("hashes password and normalizes email", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "admin@cmx.gov").Return(nil, auth.ErrUserNotFound)
		storage.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "admin@cmx.gov" && u.Name == "Administrador" && u.ID != uuid.Nil
		}), mock.MatchedBy(func(hash []byte) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte("s3cret-pass")) == nil
		})).Return(nil)

		users := auth.NewUsers(storage, auth.WithBcryptCost(bcrypt.MinCost))
		user, err := users.Create(context.Background(), " Administrador ", " Admin@CMX.gov ", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, "admin@cmx.gov", user.Email)
		storage.AssertExpectations(t)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "admin@cmx.gov").Return(&auth.User{ID: uuid.New()}, nil)

		_, err := auth.NewUsers(storage).Create(context.Background(), "Admin", "admin@cmx.gov", "s3cret-pass")
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validates input before touching storage", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		_, err := auth.NewUsers(storage).Create(context.Background(), "", "nope", "short")
		require.Error(t, err)
		assert.Equal(t, []string{"name", "email", "password"}, validator.ExtractValidationErrors(err).Fields())
		storage.AssertExpectations(t)
	})

	t.Run("propagates storage failures", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetUserByEmail", mock.Anything, "admin@cmx.gov").Return(nil, errors.New("conn reset"))

		_, err := auth.NewUsers(storage).Create(context.Background(), "Admin", "admin@cmx.gov", "s3cret-pass")
		assert.ErrorContains(t, err, "conn reset")
	})
}

func TestUsersAuthenticate(t *testing.T) {
	t.Parallel()

	user := &auth.User{ID: uuid.New(), Email: "admin@cmx.gov"}
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	storage := &MockStorage{}
	storage.On("GetUserByEmail", mock.Anything, "admin@cmx.gov").Return(user, nil)
	storage.On("GetUserByEmail", mock.Anything, "ghost@cmx.gov").Return(nil, auth.ErrUserNotFound)
	storage.On("GetPasswordHash", mock.Anything, user.ID).Return(hash, nil)
	users := auth.NewUsers(storage)

	got, err := users.Authenticate(context.Background(), "ADMIN@cmx.gov", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = users.Authenticate(context.Background(), "admin@cmx.gov", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = users.Authenticate(context.Background(), "ghost@cmx.gov", "s3cret-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUsersSetPassword(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	storage := &MockStorage{}
	storage.On("UpdatePasswordHash", mock.Anything, id, mock.Anything).Return(nil)
	users := auth.NewUsers(storage, auth.WithBcryptCost(bcrypt.MinCost))

	require.NoError(t, users.SetPassword(context.Background(), id, "new-password"))
	assert.True(t, validator.IsValidationError(users.SetPassword(context.Background(), id, "short")))
	storage.AssertNumberOfCalls(t, "UpdatePasswordHash", 1)
}
