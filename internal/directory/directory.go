package directory

import (
	"context"
	"errors"

	"github.com/prkovalenko/identity-link-service/internal/domain"
)

// Common directory errors. Transient failures are returned as-is (wrapped);
// retry policy belongs to the caller.
var (
	// ErrIdentityExists is returned when a native identity already exists
	// for the requested email.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrInvalidCode is returned when a confirmation code is wrong or expired.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrAlreadyConfirmed is returned when confirming an identity that is
	// already confirmed.
	ErrAlreadyConfirmed = errors.New("identity already confirmed")

	// ErrRateLimited is returned when the directory asks the caller to slow
	// down. Distinguishable so callers back off instead of retrying hot.
	ErrRateLimited = errors.New("directory rate limited")
)

// Identity is one provider-specific credential as held by the directory:
// a native (password) identity or a federated mirror of a social login.
type Identity struct {
	Username              string
	Subject               string
	Email                 string
	EmailVerified         bool
	ExternallyProvisioned bool
	// IdentitiesAttr carries the raw federated-identity claims payload.
	IdentitiesAttr string
}

// Directory is the identity directory collaborator. It owns credentials and
// credential verification; this service only reads and cross-references its
// identities.
type Directory interface {
	FindByEmail(ctx context.Context, email string) ([]Identity, error)
	FindBySubject(ctx context.Context, subject string) ([]Identity, error)

	// CreateNativeIdentity provisions a native identity with user-facing
	// notifications suppressed. Used only on the self-heal path.
	CreateNativeIdentity(ctx context.Context, email string) (username string, err error)

	SetPassword(ctx context.Context, username, password string) error
	SignUp(ctx context.Context, email, password string) error
	ResendConfirmationCode(ctx context.Context, email string) error
	ConfirmSignUp(ctx context.Context, email, code string) error

	// LinkIdentities asks the directory to treat the federated identity and
	// the native identity as the same login target. AlreadyLinked and
	// Conflict are reported as outcomes, not errors.
	LinkIdentities(ctx context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error)
}

// Native picks the preferred merge destination among identities sharing an
// email: the native identity users set up intentionally, never an
// auto-provisioned federated artifact. Nil when none qualifies.
func Native(identities []Identity) *Identity {
	for i := range identities {
		if !identities[i].ExternallyProvisioned {
			return &identities[i]
		}
	}
	return nil
}
