package service

import (
	"context"
	"fmt"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
	"github.com/prkovalenko/identity-link-service/pkg/observability"
	"go.uber.org/zap"
)

// linkerService implements Linker
type linkerService struct {
	methods   repository.AuthMethodRepository
	directory directory.Directory
	metrics   *observability.EngineMetrics
	logger    *zap.Logger
}

// NewLinker creates a new linking orchestrator
func NewLinker(methods repository.AuthMethodRepository, dir directory.Directory, metrics *observability.EngineMetrics, logger *zap.Logger) Linker {
	return &linkerService{
		methods:   methods,
		directory: dir,
		metrics:   metrics,
		logger:    logger,
	}
}

// Attach records the login method durably. The conditional write is the only
// concurrency control: a lost race or a retried trigger reports
// AlreadyLinked and is a success, so callers can attach on every login.
func (s *linkerService) Attach(ctx context.Context, accountID, providerName, providerSubject, username string) (domain.LinkOutcome, error) {
	created, err := s.methods.CreateIfAbsent(ctx, &domain.AuthMethod{
		AccountID:       accountID,
		ProviderName:    providerName,
		ProviderSubject: providerSubject,
		Username:        username,
		Verified:        true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to attach auth method: %w", err)
	}
	if !created {
		s.logger.Info("Auth method already attached",
			zap.String("account_id", accountID),
			zap.String("provider", providerName),
		)
		return domain.LinkOutcomeAlreadyLinked, nil
	}
	return domain.LinkOutcomeLinked, nil
}

// CrossLink asks the directory to unify a federated identity with the native
// identity. Conflict means the federated identity already belongs to a
// different native identity; it is reported as an outcome and never
// auto-resolved. Transient directory failures propagate unmodified.
func (s *linkerService) CrossLink(ctx context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error) {
	outcome, err := s.directory.LinkIdentities(ctx, nativeUsername, providerName, providerSubject)
	if err != nil {
		return "", fmt.Errorf("failed to cross-link provider %s: %w", providerName, err)
	}

	s.metrics.RecordLinkOutcome(ctx, providerName, string(outcome))
	if outcome == domain.LinkOutcomeConflict {
		s.logger.Warn("Cross-provider link conflict",
			zap.String("provider", providerName),
			zap.String("destination", nativeUsername),
		)
	}
	return outcome, nil
}

// EnsureNativeIdentity provisions a native identity for an email whose
// metadata account outlived its directory record. The metadata store is the
// longer-lived source of truth for account existence, so the directory side
// is recreated silently rather than surfacing the drift to the user.
func (s *linkerService) EnsureNativeIdentity(ctx context.Context, email string) (string, error) {
	username, err := s.directory.CreateNativeIdentity(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to provision native identity: %w", err)
	}

	s.logger.Info("Provisioned native identity for drifted account",
		zap.String("email", email),
		zap.String("username", username),
	)
	return username, nil
}
