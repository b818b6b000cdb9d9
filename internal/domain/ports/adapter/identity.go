package adapter

import "context"

// IdentityVerifier maps a bearer credential to a stable user identifier.
// It is the only contact surface with the identity subsystem.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}
