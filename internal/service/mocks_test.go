package service

import (
	"context"

	"WeaveSync/internal/model"
	"WeaveSync/internal/repo"

	"github.com/stretchr/testify/mock"
)

// мок для repo.Storage (пользователи + WBO)
type mockStore struct{ mock.Mock }

var _ repo.Storage = (*mockStore)(nil)

func (m *mockStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) IsUserNameUnique(ctx context.Context, userName string) (bool, error) {
	args := m.Called(ctx, userName)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ChangePassword(ctx context.Context, userID int64, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *mockStore) DeleteUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStore) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.UserSummary); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetUserDetails(ctx context.Context, userName string) (*model.UserDetails, error) {
	args := m.Called(ctx, userName)
	if v, ok := args.Get(0).(*model.UserDetails); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) MaxTimestamp(ctx context.Context, userID int64, coll int) (float64, error) {
	args := m.Called(ctx, userID, coll)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockStore) CollectionTimestamps(ctx context.Context, userID int64) ([]model.CollectionTimestamp, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]model.CollectionTimestamp); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CollectionCounts(ctx context.Context, userID int64) ([]model.CollectionCount, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]model.CollectionCount); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CollectionUsage(ctx context.Context, userID int64) ([]model.CollectionUsage, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]model.CollectionUsage); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) StorageTotalKB(ctx context.Context, userID int64) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockStore) GetWbo(ctx context.Context, userID int64, coll int, id string) (*model.Wbo, error) {
	args := m.Called(ctx, userID, coll, id)
	if v, ok := args.Get(0).(*model.Wbo); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetWboList(ctx context.Context, userID int64, coll int, f repo.WboFilter) ([]model.Wbo, error) {
	args := m.Called(ctx, userID, coll, f)
	if v, ok := args.Get(0).([]model.Wbo); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpsertWbo(ctx context.Context, w *model.Wbo) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockStore) UpsertWboBatch(ctx context.Context, userID int64, items []model.Wbo) (repo.BatchOutcome, error) {
	args := m.Called(ctx, userID, items)
	return args.Get(0).(repo.BatchOutcome), args.Error(1)
}

func (m *mockStore) DeleteWbo(ctx context.Context, userID int64, coll int, id string) (int64, error) {
	args := m.Called(ctx, userID, coll, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteWboList(ctx context.Context, userID int64, coll int, f repo.WboFilter) (int64, error) {
	args := m.Called(ctx, userID, coll, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}
