package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
	"github.com/prkovalenko/identity-link-service/internal/utils"
	"go.uber.org/zap"
)

// lifecycleService implements Lifecycle
type lifecycleService struct {
	accounts  repository.AccountRepository
	resolver  Resolver
	linker    Linker
	audit     Audit
	directory directory.Directory
	logger    *zap.Logger
}

// NewLifecycle creates a new lifecycle service for directory trigger events
func NewLifecycle(
	accounts repository.AccountRepository,
	resolver Resolver,
	linker Linker,
	audit Audit,
	dir directory.Directory,
	logger *zap.Logger,
) Lifecycle {
	return &lifecycleService{
		accounts:  accounts,
		resolver:  resolver,
		linker:    linker,
		audit:     audit,
		directory: dir,
		logger:    logger,
	}
}

// PreSignupExternal fires while the directory auto-provisions a federated
// identity. If a verified email matches an existing identity, the federated
// login is linked to it before the throwaway federated record is confirmed,
// so the user lands in their existing account instead of a fresh one.
func (s *lifecycleService) PreSignupExternal(ctx context.Context, event *domain.TriggerEvent) error {
	if event.TriggerSource != domain.TriggerPreSignupExternal {
		return nil
	}

	email := event.Email()
	if email == "" || !event.EmailVerified() {
		s.logger.Info("Skip pre-signup linking: missing or unverified email",
			zap.String("username", event.UserName))
		return nil
	}

	providerName := domain.ProviderFromUsername(event.UserName)
	providerSubject := domain.SubjectFromUsername(event.UserName)
	if providerSubject == "" {
		providerSubject = event.Subject()
	}
	if providerName == "" || providerSubject == "" {
		s.logger.Info("Skip pre-signup linking: could not resolve provider context",
			zap.String("username", event.UserName))
		return nil
	}

	normalized := utils.NormalizeEmail(email)
	identities, err := s.directory.FindByEmail(ctx, normalized)
	if err != nil {
		return fmt.Errorf("pre-signup directory lookup failed: %w", err)
	}

	destination := directory.Native(identities)
	if destination == nil && len(identities) > 0 {
		destination = &identities[0]
	}
	if destination == nil {
		s.logger.Info("No existing identity for email, no linking needed",
			zap.String("email", normalized))
		return nil
	}

	outcome, err := s.linker.CrossLink(ctx, destination.Username, providerName, providerSubject)
	if err != nil {
		return err
	}
	if outcome != domain.LinkOutcomeLinked {
		// Already linked, or linked elsewhere in a prior flow. Either way
		// the signup itself must not be blocked here.
		s.logger.Info("Pre-signup link already established or conflicting, continuing",
			zap.String("provider", providerName),
			zap.String("outcome", string(outcome)),
		)
		return nil
	}

	s.logger.Info("Linked provider to existing identity",
		zap.String("destination", destination.Username),
		zap.String("provider", providerName),
		zap.String("email", normalized),
	)
	return nil
}

// PostConfirmation fires once when a signup is confirmed. It seeds the
// canonical account row (or folds the signup into the account already owning
// the email), records the first login method, and audits the transition.
func (s *lifecycleService) PostConfirmation(ctx context.Context, event *domain.TriggerEvent) error {
	if event.TriggerSource != domain.TriggerPostConfirmation {
		return nil
	}

	subject := event.Subject()
	if subject == "" {
		s.logger.Warn("PostConfirmation skipped: missing subject")
		return nil
	}

	normalized := utils.NormalizeEmail(event.Email())

	var existing *domain.Account
	if normalized != "" {
		account, err := s.accounts.GetByEmail(ctx, normalized)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("post-confirmation account lookup failed: %w", err)
		}
		existing = account
	}

	canonical := subject
	if existing != nil {
		canonical = existing.AccountID
	}

	if normalized != "" {
		if existing != nil && existing.AccountID != subject {
			if err := s.accounts.Touch(ctx, existing.AccountID, domain.SourcePostConfirmationExistingEmail); err != nil {
				return fmt.Errorf("post-confirmation account touch failed: %w", err)
			}
		} else {
			_, err := s.accounts.CreateIfAbsent(ctx, &domain.Account{
				AccountID:       canonical,
				NormalizedEmail: normalized,
				Status:          domain.AccountStatusActive,
				Source:          domain.SourcePostConfirmation,
			})
			if err != nil {
				return fmt.Errorf("post-confirmation account create failed: %w", err)
			}
		}
	}

	providerName, providerSubject, ok := domain.ProviderContext(event.IdentitiesAttr())
	switch {
	case ok:
		if _, err := s.linker.Attach(ctx, canonical, providerName, providerSubject, event.UserName); err != nil {
			return err
		}
	case existing != nil:
		s.logger.Info("PostConfirmation skipped provider sync for existing email account",
			zap.String("account_id", canonical),
			zap.String("username", event.UserName),
		)
		return nil
	default:
		// A confirmation with no identities payload is the native flow; the
		// username may be a UUID or other opaque value, never parse it.
		if _, err := s.linker.Attach(ctx, canonical, domain.ProviderNative, canonical, event.UserName); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, canonical, domain.ActionPostConfirmationSignup, domain.ProviderNative,
		"Signup confirmed and profile metadata seeded")
	return nil
}

// PostAuthentication fires on every successful login. For federated logins
// it attributes the method to the canonical account and auto-links the
// federated identity to the native one sharing the email. Nothing here may
// block a login that already succeeded: failures short of a store error are
// logged or audited and absorbed.
func (s *lifecycleService) PostAuthentication(ctx context.Context, event *domain.TriggerEvent) error {
	if event.TriggerSource != domain.TriggerPostAuthentication {
		return nil
	}

	subject := event.Subject()
	if subject == "" {
		return nil
	}

	resolution, err := s.resolver.ResolveEvidence(ctx, domain.Evidence{
		SubjectID: subject,
		Email:     event.Email(),
	})
	if err != nil {
		return fmt.Errorf("post-authentication resolution failed: %w", err)
	}
	canonical := resolution.AccountID

	current := s.currentIdentity(ctx, subject)
	if current == nil || !current.ExternallyProvisioned {
		return nil
	}

	providerName, providerSubject, ok := domain.ProviderContext(event.IdentitiesAttr())
	if !ok {
		// Live event payload had nothing usable; fall back to the claims
		// persisted on the identity itself.
		providerName, providerSubject, ok = domain.ProviderContext(current.IdentitiesAttr)
	}
	if !ok {
		s.logger.Error("External-provider login had no resolvable identities payload",
			zap.String("subject", subject),
			zap.String("username", event.UserName),
		)
		s.audit.Record(ctx, canonical, domain.ActionPostAuthProviderContextMissing, domain.ProviderUnknown,
			"External-provider login had no resolvable identities payload")
		return nil
	}

	if _, err := s.linker.Attach(ctx, canonical, providerName, providerSubject, event.UserName); err != nil {
		return err
	}

	native := resolution.Native
	if native == nil || native.Username == "" || utils.NormalizeEmail(event.Email()) == "" {
		return nil
	}

	outcome, err := s.linker.CrossLink(ctx, native.Username, providerName, providerSubject)
	if err != nil {
		// The login has already succeeded; a failed auto-link is retried on
		// the next login rather than surfaced now.
		s.logger.Error("Post-auth auto-link failed",
			zap.String("provider", providerName),
			zap.String("email", utils.NormalizeEmail(event.Email())),
			zap.Error(err),
		)
		return nil
	}
	if outcome == domain.LinkOutcomeLinked {
		s.audit.Record(ctx, canonical, domain.ActionAutoLinkPostAuth, providerName,
			fmt.Sprintf("Linked %s to native identity %s", providerName, native.Username))
	}
	return nil
}

func (s *lifecycleService) currentIdentity(ctx context.Context, subject string) *directory.Identity {
	identities, err := s.directory.FindBySubject(ctx, subject)
	if err != nil {
		s.logger.Warn("Directory subject lookup failed post-authentication",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return nil
	}
	if len(identities) == 0 {
		return nil
	}
	return &identities[0]
}
