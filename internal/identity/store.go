package identity

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrNoSession is returned when writing to a store without backing session.
var ErrNoSession = errors.New("identity: no session")

// Session keys holding the persisted identity.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// KV is the persisted key-value storage backing a Store.
type KV interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}

// Owner is implemented by session types that also track the signed-in user id.
type Owner interface {
	SetUser(id string)
}

// Store reads and writes the current identity from a session.
type Store struct {
	kv KV
}

// NewStore wraps kv. A nil kv yields a store that is never authenticated.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// CurrentUser returns the stored user, or nil when absent or unreadable.
func (s *Store) CurrentUser() *User {
	if s == nil || s.kv == nil {
		return nil
	}
	raw := s.kv.Get(KeyUser)
	if raw == "" {
		return nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// IsAuthenticated reports whether an access token is present.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// AccessToken returns the bearer token for API calls.
func (s *Store) AccessToken() string {
	if s == nil || s.kv == nil {
		return ""
	}
	return s.kv.Get(KeyAccessToken)
}

// RefreshToken returns the refresh token.
func (s *Store) RefreshToken() string {
	if s == nil || s.kv == nil {
		return ""
	}
	return s.kv.Get(KeyRefreshToken)
}

// SetAccessToken replaces the access token after a refresh.
func (s *Store) SetAccessToken(token string) {
	if s == nil || s.kv == nil {
		return
	}
	s.kv.Set(KeyAccessToken, token)
}

// SignIn writes the three identity keys.
func (s *Store) SignIn(access, refresh string, user User) error {
	if s == nil || s.kv == nil {
		return ErrNoSession
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.kv.Set(KeyAccessToken, access)
	s.kv.Set(KeyRefreshToken, refresh)
	s.kv.Set(KeyUser, string(data))
	if o, ok := s.kv.(Owner); ok {
		o.SetUser(strconv.FormatInt(user.ID, 10))
	}
	return nil
}

// Logout clears the identity keys.
func (s *Store) Logout() {
	if s == nil || s.kv == nil {
		return
	}
	s.kv.Delete(KeyAccessToken)
	s.kv.Delete(KeyRefreshToken)
	s.kv.Delete(KeyUser)
	if o, ok := s.kv.(Owner); ok {
		o.SetUser("")
	}
}

// Detached returns a store holding a copy of the identity keys. Work that
// outlives the request uses it so it never touches the request session.
func (s *Store) Detached() *Store {
	snapshot := MapKV{}
	if s != nil && s.kv != nil {
		for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
			if v := s.kv.Get(k); v != "" {
				snapshot[k] = v
			}
		}
	}
	return &Store{kv: snapshot}
}

// MapKV is an in-memory KV.
type MapKV map[string]string

func (m MapKV) Get(key string) string { return m[key] }

func (m MapKV) Set(key, value string) { m[key] = value }

func (m MapKV) Delete(key string) { delete(m, key) }
