package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned when a user lacks the permission an
// operation requires.
var ErrPermissionDenied = errors.New("permission denied")

// Authorizer answers whether a user holds a permission.
type Authorizer interface {
	Can(ctx context.Context, userID uuid.UUID, permission Permission) (bool, error)
}

// StaticAuthorizer is an in-memory Authorizer backed by a fixed
// user-to-role assignment. Users without an assignment default to the
// member role.
type StaticAuthorizer struct {
	mu    sync.RWMutex
	roles map[uuid.UUID]Role
}

// NewStaticAuthorizer creates an authorizer with the given assignments.
func NewStaticAuthorizer(roles map[uuid.UUID]Role) *StaticAuthorizer {
	assigned := make(map[uuid.UUID]Role, len(roles))
	for id, role := range roles {
		assigned[id] = role
	}
	return &StaticAuthorizer{roles: assigned}
}

// Assign sets or replaces a user's role.
func (a *StaticAuthorizer) Assign(userID uuid.UUID, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[userID] = role
}

// RoleOf returns the user's role, defaulting to member.
func (a *StaticAuthorizer) RoleOf(userID uuid.UUID) Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if role, ok := a.roles[userID]; ok {
		return role
	}
	return RoleMember
}

// Can implements Authorizer.
func (a *StaticAuthorizer) Can(_ context.Context, userID uuid.UUID, permission Permission) (bool, error) {
	return a.RoleOf(userID).HasPermission(permission), nil
}
