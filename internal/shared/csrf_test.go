package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc"}

	_, err := m.EnsureToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, _ := m.EnsureToken(context.Background(), sess)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)

	m.Rotate(sess)
	rotated, _ := m.EnsureToken(context.Background(), sess)
	assert.NotEqual(t, token, rotated)
}

func TestCSRFVerifyRequest(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc"}
	token, _ := m.EnsureToken(context.Background(), sess)

	form := url.Values{CSRFFormField: {token}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(ContextWithSession(req.Context(), sess))
	assert.NoError(t, m.VerifyRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(CSRFHeader, token)
	req = req.WithContext(ContextWithSession(req.Context(), sess))
	assert.NoError(t, m.VerifyRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.ErrorIs(t, m.VerifyRequest(req), ErrCSRFTokenMissing)
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	start, end := p.Bounds()
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p = NewPagination(9, 10, 0)
	assert.Equal(t, 1, p.Page)
	start, end = p.Bounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}
