package auth_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/camarasaas/portal/pkg/auth"
)

// MockStorage is a mock implementation of auth.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(ctx context.Context, user *auth.User, hash []byte) error {
	args := m.Called(ctx, user, hash)
	return args.Error(0)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockStorage) GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error {
	args := m.Called(ctx, userID, hash)
	return args.Error(0)
}

func (m *MockStorage) SaveResetToken(ctx context.Context, email string, hash []byte, createdAt time.Time) error {
	args := m.Called(ctx, email, hash, createdAt)
	return args.Error(0)
}

func (m *MockStorage) GetResetToken(ctx context.Context, email string) ([]byte, time.Time, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, time.Time{}, args.Error(2)
	}
	return args.Get(0).([]byte), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockStorage) DeleteResetToken(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockStorage) DeleteResetTokensBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ResetPassword(ctx context.Context, email string, userID uuid.UUID, hash []byte) error {
	args := m.Called(ctx, email, userID, hash)
	return args.Error(0)
}
