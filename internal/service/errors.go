package service

import "errors"

// Engine error taxonomy. Validation and conflict errors are non-retryable;
// everything else bubbles up to the caller, which owns retry policy.
var (
	// ErrValidation marks malformed input rejected before any external call.
	ErrValidation = errors.New("validation failed")

	// ErrLinkConflict is returned when a federated identity is already
	// linked to a different native identity. Auto-resolving would silently
	// move someone's login method to the wrong account, so it surfaces.
	ErrLinkConflict = errors.New("provider is linked to another account")

	// ErrNativeIdentityMissing is returned when a password flow finds no
	// native identity for the email and the self-heal path does not apply.
	ErrNativeIdentityMissing = errors.New("native identity missing")

	// ErrRecentAuthRequired is returned when a sensitive session operation
	// is attempted without a fresh authentication.
	ErrRecentAuthRequired = errors.New("recent authentication required")

	// ErrUnresolvableEvidence is returned when no account id can be derived
	// from the presented evidence.
	ErrUnresolvableEvidence = errors.New("identity evidence could not be resolved")
)
