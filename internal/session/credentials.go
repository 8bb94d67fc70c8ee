package session

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"visitor-desk/internal/models"
)

type Credential struct {
	Username    string
	Password    string
	Role        models.Role
	DisplayName string
}

// DefaultCredentials is the built-in two-entry table. It is a stand-in, not
// a security boundary.
func DefaultCredentials() []Credential {
	return []Credential{
		{Username: "admin", Password: "admin", Role: models.RoleAdmin, DisplayName: "Administrador"},
		{Username: "usuario", Password: "1234", Role: models.RoleVisitor, DisplayName: "Usuario"},
	}
}

type entry struct {
	hash     []byte
	identity models.Identity
}

// CredentialTable authenticates against a fixed in-memory table of bcrypt
// hashes.
type CredentialTable struct {
	entries map[string]entry
}

func NewCredentialTable(creds ...Credential) (*CredentialTable, error) {
	t := &CredentialTable{entries: make(map[string]entry, len(creds))}
	for _, c := range creds {
		name := strings.TrimSpace(c.Username)
		if name == "" {
			return nil, fmt.Errorf("credential username is empty")
		}
		if _, dup := t.entries[name]; dup {
			return nil, fmt.Errorf("duplicate credential %q", name)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", name, err)
		}
		t.entries[name] = entry{
			hash: hash,
			identity: models.Identity{
				Username:    name,
				Role:        c.Role,
				DisplayName: c.DisplayName,
			},
		}
	}
	return t, nil
}

func (t *CredentialTable) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	e, ok := t.entries[strings.TrimSpace(username)]
	if !ok {
		return models.Identity{}, models.ErrAuth
	}
	if err := bcrypt.CompareHashAndPassword(e.hash, []byte(password)); err != nil {
		return models.Identity{}, models.ErrAuth
	}
	return e.identity, nil
}
