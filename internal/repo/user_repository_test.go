package repo

import (
	"context"
	"testing"

	"WeaveSync/internal/collection"
	"WeaveSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// успешное создание, имя приводится к нижнему регистру
	u, err := s.CreateUser(ctx, &model.User{UserName: "John", Email: strPtr("john@example.com"), Password: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "john", u.UserName)

	// поиск по имени без учёта регистра
	got, err := s.GetUserByLogin(ctx, "JOHN")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// поиск по email
	got, err = s.GetUserByLogin(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// уникальное имя - вторая вставка должна дать ошибку
	_, err = s.CreateUser(ctx, &model.User{UserName: "john", Password: "x"})
	assert.Error(t, err)

	// поиск несуществующего - ожидаем gorm.ErrRecordNotFound
	got, err = s.GetUserByLogin(ctx, "doesnotexist")
	assert.Nil(t, got)
	assert.Equal(t, gorm.ErrRecordNotFound, err)

	free, err := s.IsUserNameUnique(ctx, "John")
	require.NoError(t, err)
	assert.False(t, free)
	free, err = s.IsUserNameUnique(ctx, "mary")
	require.NoError(t, err)
	assert.True(t, free)
}

func TestUserRepository_ChangePassword(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &model.User{UserName: "ann", Password: "old"})
	require.NoError(t, err)

	require.NoError(t, s.ChangePassword(ctx, u.ID, "new"))
	got, err := s.GetUserByLogin(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)

	assert.ErrorIs(t, s.ChangePassword(ctx, 9999, "x"), gorm.ErrRecordNotFound)
}

func TestUserRepository_DeleteUserRemovesWbos(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &model.User{UserName: "bob", Password: "h"})
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, &model.User{UserName: "eve", Password: "h"})
	require.NoError(t, err)
	seed(t, s, u.ID)
	seed(t, s, other.ID)

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err = s.GetUserByLogin(ctx, "bob")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	rows, err := s.GetWboList(ctx, u.ID, bookmarks, WboFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = s.GetWboList(ctx, other.ID, bookmarks, WboFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), gorm.ErrRecordNotFound)
}

func TestUserRepository_ListAndDetails(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	bob, err := s.CreateUser(ctx, &model.User{UserName: "bob", Password: "h"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, &model.User{UserName: "alice", Password: "h"})
	require.NoError(t, err)
	seed(t, s, bob.ID)

	prefs := collection.NameToCode("prefs")
	expired := mkWbo(bob.ID, prefs, "p", 1, 0, "xxxx")
	expired.TTL = testNow.Unix() - 10
	require.NoError(t, s.UpsertWbo(ctx, &expired))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].UserName)
	assert.Zero(t, users[0].WboCount)
	assert.Equal(t, "bob", users[1].UserName)
	assert.Equal(t, int64(4), users[1].WboCount)
	assert.InDelta(t, 15.0/1024, users[1].TotalKB, 1e-9)

	details, err := s.GetUserDetails(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, details.ID)
	require.Len(t, details.Collections, 1)
	assert.Equal(t, "bookmarks", details.Collections[0].Name)
	assert.Equal(t, int64(4), details.Collections[0].Count)
	assert.Equal(t, int64(15), details.Collections[0].Bytes)
	assert.InDelta(t, 100.40, details.Collections[0].Modified, 0.001)

	_, err = s.GetUserDetails(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
