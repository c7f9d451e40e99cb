package directory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDirectory(t *testing.T) *SQLiteDirectory {
	t.Helper()
	dir, err := Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return dir
}

func TestFindUnknownUserReturnsNil(t *testing.T) {
	dir := openTestDirectory(t)

	user, err := dir.FindByUserID("nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpsertCreatesOnlineUser(t *testing.T) {
	dir := openTestDirectory(t)

	created, err := dir.UpsertOnline("user-1", "Maria")
	require.NoError(t, err)
	assert.True(t, created.Online)

	found, err := dir.FindByUserID("user-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Maria", found.DisplayName)
	assert.True(t, found.Online)
}

func TestUpsertUpdatesDisplayNameAndPresence(t *testing.T) {
	dir := openTestDirectory(t)

	_, err := dir.UpsertOnline("user-1", "Maria")
	require.NoError(t, err)
	require.NoError(t, dir.SetOffline("user-1"))

	_, err = dir.UpsertOnline("user-1", "Maria Silva")
	require.NoError(t, err)

	found, err := dir.FindByUserID("user-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Maria Silva", found.DisplayName)
	assert.True(t, found.Online)
}

func TestSetOffline(t *testing.T) {
	dir := openTestDirectory(t)

	_, err := dir.UpsertOnline("user-1", "Maria")
	require.NoError(t, err)
	require.NoError(t, dir.SetOffline("user-1"))

	found, err := dir.FindByUserID("user-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.Online)
}

func TestSearchMatchesOnlineUsersOnly(t *testing.T) {
	dir := openTestDirectory(t)

	_, err := dir.UpsertOnline("user-1", "Maria Silva")
	require.NoError(t, err)
	_, err = dir.UpsertOnline("user-2", "Mariana Souza")
	require.NoError(t, err)
	_, err = dir.UpsertOnline("user-3", "João Pereira")
	require.NoError(t, err)
	require.NoError(t, dir.SetOffline("user-2"))

	users, err := dir.SearchOnlineByDisplayName("Mari")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "user-1", users[0].UserID)
}

func TestSearchWithNoMatches(t *testing.T) {
	dir := openTestDirectory(t)

	_, err := dir.UpsertOnline("user-1", "Maria")
	require.NoError(t, err)

	users, err := dir.SearchOnlineByDisplayName("zzz")
	require.NoError(t, err)
	assert.Empty(t, users)
}
