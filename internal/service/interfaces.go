package service

import (
	"context"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
)

// Resolution is the full result of resolving identity evidence: the canonical
// account id plus the directory identities consulted along the way, so
// callers do not have to re-query the directory.
type Resolution struct {
	AccountID  string
	Identities []directory.Identity
	Native     *directory.Identity
}

// Resolver decides which single account a fragment of identity evidence
// belongs to.
type Resolver interface {
	// Resolve returns the canonical account id for the evidence. The email
	// index is the durable merge anchor and always wins; directory lookups
	// degrade to the evidence's own subject id on failure.
	Resolve(ctx context.Context, evidence domain.Evidence) (string, error)
	// ResolveEvidence returns the account id together with the directory
	// identities it consulted.
	ResolveEvidence(ctx context.Context, evidence domain.Evidence) (*Resolution, error)
}

// Methods derives the set of known login methods for an account from
// several independent signals.
type Methods interface {
	MethodsFor(ctx context.Context, accountID string, identities []directory.Identity, claims *domain.SessionClaims) ([]domain.MethodInfo, error)
}

// Linker idempotently attaches observed identities to a canonical account
// and requests cross-provider links in the directory.
type Linker interface {
	Attach(ctx context.Context, accountID, providerName, providerSubject, username string) (domain.LinkOutcome, error)
	CrossLink(ctx context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error)
	// EnsureNativeIdentity provisions a native identity for an email whose
	// metadata account exists but whose directory record has drifted away.
	EnsureNativeIdentity(ctx context.Context, email string) (string, error)
}

// Discovery computes the client-visible status for an email address.
type Discovery interface {
	Discover(ctx context.Context, email string) (*domain.Discovery, error)
}

// Lifecycle handles directory trigger events. A nil return acknowledges the
// event; an error blocks the directory operation that fired it.
type Lifecycle interface {
	PreSignupExternal(ctx context.Context, event *domain.TriggerEvent) error
	PostConfirmation(ctx context.Context, event *domain.TriggerEvent) error
	PostAuthentication(ctx context.Context, event *domain.TriggerEvent) error
}

// PasswordSetup drives the add-a-password flows for accounts that started
// with a federated login, and password changes on live sessions.
type PasswordSetup interface {
	Start(ctx context.Context, email string) error
	Complete(ctx context.Context, email, code, newPassword string) error
	SetPassword(ctx context.Context, claims *domain.SessionClaims, newPassword string) error
}

// Audit appends lifecycle events to the per-account trail. Append failures
// are soft: logged, never propagated, because the auth state is already
// durable by the time an audit write is attempted.
type Audit interface {
	Record(ctx context.Context, accountID, action, provider, details string)
}
