package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
	"github.com/prkovalenko/identity-link-service/internal/utils"
	"go.uber.org/zap"
)

// passwordSetupService implements PasswordSetup
type passwordSetupService struct {
	accounts          repository.AccountRepository
	directory         directory.Directory
	linker            Linker
	audit             Audit
	logger            *zap.Logger
	minPasswordLength int
	recentAuthWindow  time.Duration
}

// NewPasswordSetup creates a new password setup service
func NewPasswordSetup(
	accounts repository.AccountRepository,
	dir directory.Directory,
	linker Linker,
	audit Audit,
	logger *zap.Logger,
	minPasswordLength int,
	recentAuthWindow time.Duration,
) PasswordSetup {
	return &passwordSetupService{
		accounts:          accounts,
		directory:         dir,
		linker:            linker,
		audit:             audit,
		logger:            logger,
		minPasswordLength: minPasswordLength,
		recentAuthWindow:  recentAuthWindow,
	}
}

// Start begins email verification for a password setup. The signup uses a
// throwaway generated password that completion replaces. Both the
// existing-identity case and resend failures are absorbed so the response
// never reveals whether the email is known.
func (s *passwordSetupService) Start(ctx context.Context, email string) error {
	if !utils.ValidateEmail(email) {
		return fmt.Errorf("email is required: %w", ErrValidation)
	}
	normalized := utils.NormalizeEmail(email)

	if err := s.directory.SignUp(ctx, normalized, utils.TempPassword()); err != nil {
		if !errors.Is(err, directory.ErrIdentityExists) {
			return fmt.Errorf("failed to start email verification: %w", err)
		}
	}

	if err := s.directory.ResendConfirmationCode(ctx, normalized); err != nil {
		s.logger.Debug("Resend confirmation code failed, keeping success response",
			zap.String("email", normalized),
			zap.Error(err),
		)
	}

	return nil
}

// Complete confirms the emailed code, sets the permanent password on the
// native identity, and cross-links every federated identity sharing the
// email. A link conflict aborts before any local method row is written.
func (s *passwordSetupService) Complete(ctx context.Context, email, code, newPassword string) error {
	if !utils.ValidateEmail(email) {
		return fmt.Errorf("email is required: %w", ErrValidation)
	}
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("verification code is required: %w", ErrValidation)
	}
	if !utils.ValidatePassword(newPassword, s.minPasswordLength) {
		return fmt.Errorf("newPassword must be at least %d chars: %w", s.minPasswordLength, ErrValidation)
	}
	normalized := utils.NormalizeEmail(email)

	if err := s.directory.ConfirmSignUp(ctx, normalized, strings.TrimSpace(code)); err != nil {
		// Already-confirmed identities re-run setup legitimately (e.g. a
		// retried completion); everything else stops the flow.
		if !errors.Is(err, directory.ErrAlreadyConfirmed) {
			return fmt.Errorf("failed to confirm verification code: %w", err)
		}
	}

	identities, err := s.directory.FindByEmail(ctx, normalized)
	if err != nil {
		return fmt.Errorf("failed to list identities for email: %w", err)
	}

	native, err := s.nativeForSetup(ctx, identities, normalized)
	if err != nil {
		return err
	}

	if err := s.directory.SetPassword(ctx, native.Username, newPassword); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	for i := range identities {
		identity := &identities[i]
		if !identity.ExternallyProvisioned {
			continue
		}
		if err := s.linkExternal(ctx, native, identity); err != nil {
			return err
		}
	}

	canonical := native.Subject
	if account, err := s.accounts.GetByEmail(ctx, normalized); err == nil {
		canonical = account.AccountID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to resolve canonical account: %w", err)
	}

	if _, err := s.linker.Attach(ctx, canonical, domain.ProviderNative, canonical, native.Username); err != nil {
		return err
	}
	s.audit.Record(ctx, canonical, domain.ActionSetPasswordPublicFlow, domain.ProviderNative,
		"Password set from login/signup flow")
	return nil
}

// nativeForSetup locates the native identity for the email, preferring the
// one whose username is the email itself. When the directory has drifted and
// lost the native identity while the metadata account still exists, a fresh
// native identity is provisioned silently.
func (s *passwordSetupService) nativeForSetup(ctx context.Context, identities []directory.Identity, normalized string) (*directory.Identity, error) {
	for i := range identities {
		if !identities[i].ExternallyProvisioned && strings.EqualFold(identities[i].Username, normalized) {
			return &identities[i], nil
		}
	}
	if native := directory.Native(identities); native != nil {
		if native.Subject == "" {
			s.logger.Error("Native identity has no subject",
				zap.String("email", normalized),
				zap.String("username", native.Username),
			)
			return nil, ErrNativeIdentityMissing
		}
		return native, nil
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("No native identity and no metadata account for email",
				zap.String("email", normalized),
				zap.Int("identities_found", len(identities)),
			)
			return nil, ErrNativeIdentityMissing
		}
		return nil, fmt.Errorf("failed to check metadata account: %w", err)
	}

	if _, err := s.linker.EnsureNativeIdentity(ctx, normalized); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, account.AccountID, domain.ActionNativeIdentityProvisioned, domain.ProviderNative,
		"Recreated missing native identity from durable account metadata")

	refreshed, err := s.directory.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to re-list identities after provisioning: %w", err)
	}
	if native := directory.Native(refreshed); native != nil && native.Subject != "" {
		return native, nil
	}
	return nil, ErrNativeIdentityMissing
}

func (s *passwordSetupService) linkExternal(ctx context.Context, native, external *directory.Identity) error {
	providerName, providerSubject, ok := domain.ProviderContext(external.IdentitiesAttr)
	if !ok {
		s.logger.Error("External identity has no provider context",
			zap.String("username", external.Username),
		)
		s.audit.Record(ctx, native.Subject, domain.ActionPasswordSetupProviderContextMissing, domain.ProviderUnknown,
			"External identity exists but has no provider context in identities")
		return nil
	}

	outcome, err := s.linker.CrossLink(ctx, native.Username, providerName, providerSubject)
	if err != nil {
		return fmt.Errorf("failed to link provider %s during password setup: %w", providerName, err)
	}

	switch outcome {
	case domain.LinkOutcomeLinked:
		s.audit.Record(ctx, native.Subject, domain.ActionPasswordSetupLinkProvider, providerName,
			fmt.Sprintf("Linked provider %s to %s during password setup completion", providerName, native.Username))
	case domain.LinkOutcomeConflict:
		s.audit.Record(ctx, native.Subject, domain.ActionPasswordSetupLinkProviderConflict, providerName,
			"Provider is linked to another account")
		return fmt.Errorf("provider %s: %w", providerName, ErrLinkConflict)
	}
	return nil
}

// SetPassword sets a permanent password for an authenticated session. The
// session must have authenticated recently; a long-lived token alone is not
// enough to take over an account's password.
func (s *passwordSetupService) SetPassword(ctx context.Context, claims *domain.SessionClaims, newPassword string) error {
	if claims == nil || claims.Subject == "" {
		return ErrRecentAuthRequired
	}
	if !claims.RecentlyAuthenticated(s.recentAuthWindow) {
		return ErrRecentAuthRequired
	}
	if !utils.ValidatePassword(newPassword, s.minPasswordLength) {
		return fmt.Errorf("newPassword must be at least %d chars: %w", s.minPasswordLength, ErrValidation)
	}

	username := claims.EffectiveUsername()
	if err := s.directory.SetPassword(ctx, username, newPassword); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	if _, err := s.linker.Attach(ctx, claims.Subject, domain.ProviderNative, claims.Subject, username); err != nil {
		return err
	}
	s.audit.Record(ctx, claims.Subject, domain.ActionSetPassword, domain.ProviderNative,
		"Password enabled for account")
	return nil
}
