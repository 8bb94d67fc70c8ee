package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-desk/internal/models"
)

func newDefaultSession(t *testing.T) *Session {
	t.Helper()
	table, err := NewCredentialTable(DefaultCredentials()...)
	require.NoError(t, err)
	return New(table)
}

func TestLoginRoles(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantRole models.Role
		wantErr  bool
	}{
		{name: "admin", username: "admin", password: "admin", wantRole: models.RoleAdmin},
		{name: "visitor", username: "usuario", password: "1234", wantRole: models.RoleVisitor},
		{name: "username is trimmed", username: " usuario ", password: "1234", wantRole: models.RoleVisitor},
		{name: "wrong password", username: "admin", password: "1234", wantErr: true},
		{name: "unknown user", username: "root", password: "admin", wantErr: true},
		{name: "empty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newDefaultSession(t)
			id, err := s.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrAuth)
				_, ok := s.Current()
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, id.Role)
			assert.NotEmpty(t, id.SessionID)

			cur, ok := s.Current()
			require.True(t, ok)
			assert.Equal(t, id, cur)
		})
	}
}

func TestFailedLoginKeepsIdentity(t *testing.T) {
	s := newDefaultSession(t)
	first, err := s.Login(context.Background(), "usuario", "1234")
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, models.ErrAuth)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, first, cur)
}

func TestLogoutIsIdempotent(t *testing.T) {
	s := newDefaultSession(t)
	_, err := s.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)

	s.Logout()
	s.Logout()
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestEachLoginGetsNewSessionID(t *testing.T) {
	s := newDefaultSession(t)
	a, err := s.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	s.Logout()
	b, err := s.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestCredentialTableRejectsBadEntries(t *testing.T) {
	_, err := NewCredentialTable(Credential{Username: " ", Password: "x"})
	assert.Error(t, err)

	_, err = NewCredentialTable(
		Credential{Username: "admin", Password: "a", Role: models.RoleAdmin},
		Credential{Username: "admin", Password: "b", Role: models.RoleVisitor},
	)
	assert.Error(t, err)
}
