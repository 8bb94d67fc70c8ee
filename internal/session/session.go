package session

import (
	"context"

	"github.com/google/uuid"

	"visitor-desk/internal/models"
)

// Authenticator resolves credentials to an identity. It is the seam where a
// real identity backend would replace the fixed credential table.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Identity, error)
}

// Session holds at most one identity for the lifetime of a page (one chat).
type Session struct {
	auth     Authenticator
	identity *models.Identity
}

func New(auth Authenticator) *Session {
	return &Session{auth: auth}
}

// Login replaces the current identity on success. On failure the session is
// left as it was.
func (s *Session) Login(ctx context.Context, username, password string) (models.Identity, error) {
	id, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return models.Identity{}, err
	}
	id.SessionID = uuid.NewString()
	s.identity = &id
	return id, nil
}

func (s *Session) Logout() {
	s.identity = nil
}

func (s *Session) Current() (models.Identity, bool) {
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}
