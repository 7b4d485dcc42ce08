package service

import (
	"errors"
	"fmt"

	"cmms-backend/internal/model"

	"github.com/google/uuid"
)

// Actor identifies the authenticated user performing an operation. Lifecycle
// and classifier functions never read ambient session state; handlers build
// the actor from the verified JWT claims and pass it down explicitly.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// Sentinel errors for the failure taxonomy. Handlers map these to HTTP codes.
var (
	// ErrUnauthorized means the actor's role is insufficient for the transition
	ErrUnauthorized = errors.New("insufficient role for this operation")
	// ErrGuardViolation means a state machine precondition was unmet
	ErrGuardViolation = errors.New("transition guard violated")
)

// guardViolation wraps ErrGuardViolation with a specific human-readable reason
func guardViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGuardViolation, fmt.Sprintf(format, args...))
}

// requireManager rejects actors outside ADMIN/SUPERVISOR
func requireManager(actor Actor) error {
	if !actor.Role.CanManage() {
		return fmt.Errorf("%w: role %s cannot perform this transition", ErrUnauthorized, actor.Role)
	}
	return nil
}
