package domain

import "time"

// Account statuses
const (
	AccountStatusActive = "ACTIVE"
)

// Account creation/update sources, kept for support tooling that inspects
// how a metadata row came to exist.
const (
	SourcePostConfirmation              = "POST_CONFIRMATION"
	SourcePostConfirmationExistingEmail = "POST_CONFIRMATION_EXISTING_EMAIL"
	SourcePasswordSetup                 = "PASSWORD_SETUP"
)

// Account is the canonical identity record: the single merge target for every
// login identity sharing its normalized email. Created once, never deleted.
type Account struct {
	AccountID       string    `json:"account_id" db:"account_id"`
	NormalizedEmail string    `json:"normalized_email" db:"normalized_email"`
	Status          string    `json:"status" db:"status"`
	Source          string    `json:"source" db:"source"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// AuthMethod is a durable fact: this account has a working login method via
// this provider. At most one row per (account, provider) pair; the conditional
// insert in the repository is what makes linking idempotent.
type AuthMethod struct {
	AccountID       string    `json:"account_id" db:"account_id"`
	Provider        string    `json:"provider" db:"provider"`           // canonical upper-case key
	ProviderName    string    `json:"provider_name" db:"provider_name"` // as reported by the directory
	ProviderSubject string    `json:"provider_subject" db:"provider_subject"`
	Username        string    `json:"username" db:"username"`
	Verified        bool      `json:"verified" db:"verified"`
	LinkedAt        time.Time `json:"linked_at" db:"linked_at"`
}

// AuditEvent is an append-only record of a lifecycle transition. It is the
// only trace of why a merge or link happened; merges are invisible to the
// end user otherwise.
type AuditEvent struct {
	AccountID string    `json:"account_id" db:"account_id"`
	EventID   string    `json:"event_id" db:"event_id"`
	Action    string    `json:"action" db:"action"`
	Provider  string    `json:"provider" db:"provider"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Audit actions
const (
	ActionPostConfirmationSignup              = "POST_CONFIRMATION_SIGNUP"
	ActionAutoLinkPostAuth                    = "AUTO_LINK_POST_AUTH"
	ActionPostAuthProviderContextMissing      = "POST_AUTH_PROVIDER_CONTEXT_MISSING"
	ActionSetPassword                         = "SET_PASSWORD"
	ActionSetPasswordPublicFlow               = "SET_PASSWORD_PUBLIC_FLOW"
	ActionPasswordSetupLinkProvider           = "PASSWORD_SETUP_LINK_PROVIDER"
	ActionPasswordSetupLinkProviderConflict   = "PASSWORD_SETUP_LINK_PROVIDER_CONFLICT"
	ActionPasswordSetupProviderContextMissing = "PASSWORD_SETUP_PROVIDER_CONTEXT_MISSING"
	ActionNativeIdentityProvisioned           = "NATIVE_IDENTITY_PROVISIONED"
)
