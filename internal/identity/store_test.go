package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	values map[string]string
	user   string
}

func newMemKV() *memKV { return &memKV{values: map[string]string{}} }

func (m *memKV) Get(key string) string { return m.values[key] }
func (m *memKV) Set(key, value string) { m.values[key] = value }
func (m *memKV) Delete(key string)     { delete(m.values, key) }
func (m *memKV) SetUser(id string)     { m.user = id }

func TestStoreSignInAndLogout(t *testing.T) {
	kv := newMemKV()
	store := NewStore(kv)

	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())

	user := User{ID: 7, Email: "owner@pharma.test", Name: "Awa Diallo", Role: RoleOwner, Active: true}
	require.NoError(t, store.SignIn("acc", "ref", user))

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "acc", store.AccessToken())
	assert.Equal(t, "ref", store.RefreshToken())
	assert.Equal(t, "7", kv.user)
	got := store.CurrentUser()
	require.NotNil(t, got)
	assert.Equal(t, user, *got)

	store.SetAccessToken("acc2")
	assert.Equal(t, "acc2", store.AccessToken())

	store.Logout()
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())
	assert.Empty(t, kv.values)
	assert.Empty(t, kv.user)
}

func TestStoreCorruptUserIsAbsent(t *testing.T) {
	kv := newMemKV()
	kv.Set(KeyUser, "{not json")
	assert.Nil(t, NewStore(kv).CurrentUser())
}

func TestNilStore(t *testing.T) {
	var store *Store
	assert.Nil(t, store.CurrentUser())
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, NewStore(nil).CurrentUser())
}

func TestUserHelpers(t *testing.T) {
	u := &User{Name: "awa marie diallo", Role: RoleEmployee}
	assert.Equal(t, "AM", u.Initials())
	assert.True(t, u.IsEmployee())
	assert.False(t, u.IsOwner())
	assert.True(t, RoleOwner.IsStaff())
	assert.False(t, Role("patient").IsStaff())
	assert.Equal(t, "Employé", RoleEmployee.Label())
}

func TestDetachedCopiesIdentity(t *testing.T) {
	kv := newMemKV()
	store := NewStore(kv)
	require.NoError(t, store.SignIn("acc", "ref", User{ID: 3, Role: RoleEmployee}))

	detached := store.Detached()
	detached.SetAccessToken("rotated")

	assert.Equal(t, "acc", store.AccessToken())
	assert.Equal(t, "rotated", detached.AccessToken())
	assert.Equal(t, int64(3), detached.CurrentUser().ID)

	require.ErrorIs(t, NewStore(nil).SignIn("a", "b", User{}), ErrNoSession)
}
