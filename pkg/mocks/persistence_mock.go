// Package mocks provides testify mocks of the persistence, notifier and event bus interfaces.
package mocks

import (
	"context"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

var _ persistence.Persistence = (*MockPersistence)(nil)

func (m *MockPersistence) ReferenceByID(ctx context.Context, id int64) (*models.Reference, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Reference), args.Error(1)
}

func (m *MockPersistence) ReferenceByCode(ctx context.Context, code string) (*models.Reference, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Reference), args.Error(1)
}

func (m *MockPersistence) RecordsForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TraceabilityRecord), args.Error(1)
}

func (m *MockPersistence) OpenRecords(ctx context.Context) ([]*models.TraceabilityRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TraceabilityRecord), args.Error(1)
}

func (m *MockPersistence) Users(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockPersistence) UserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockPersistence) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)

	return args.Error(0)
}

func (m *MockPersistence) UpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)

	return args.Error(0)
}

func (m *MockPersistence) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) Atomically(ctx context.Context, fn func(ctx context.Context, tx persistence.Tx) error) error {
	args := m.Called(ctx, fn)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
