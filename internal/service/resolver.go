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

// resolverService implements Resolver
type resolverService struct {
	accounts  repository.AccountRepository
	directory directory.Directory
	logger    *zap.Logger
}

// NewResolver creates a new canonical account resolver
func NewResolver(accounts repository.AccountRepository, dir directory.Directory, logger *zap.Logger) Resolver {
	return &resolverService{
		accounts:  accounts,
		directory: dir,
		logger:    logger,
	}
}

// Resolve returns the canonical account id for the evidence.
func (s *resolverService) Resolve(ctx context.Context, evidence domain.Evidence) (string, error) {
	resolution, err := s.ResolveEvidence(ctx, evidence)
	if err != nil {
		return "", err
	}
	if resolution.AccountID == "" {
		return "", ErrUnresolvableEvidence
	}
	return resolution.AccountID, nil
}

// ResolveEvidence applies the resolution precedence:
//  1. the metadata store's email index (the durable merge anchor),
//  2. an email learned from the subject's own directory identity,
//  3. the native identity among directory identities sharing the email,
//  4. the evidence's own subject id.
//
// Directory failures are treated as "no identity evidence" and degrade to
// the fallback; metadata store failures propagate, since the store is the
// anchor the whole resolution hangs on.
func (s *resolverService) ResolveEvidence(ctx context.Context, evidence domain.Evidence) (*Resolution, error) {
	resolution := &Resolution{AccountID: evidence.SubjectID}

	email := utils.NormalizeEmail(evidence.Email)
	if email == "" && evidence.SubjectID != "" {
		email = s.emailFromSubject(ctx, evidence.SubjectID)
	}
	if email == "" {
		return resolution, nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve account by email: %w", err)
	}

	identities, dirErr := s.directory.FindByEmail(ctx, email)
	if dirErr != nil {
		s.logger.Warn("Directory lookup failed during resolution, degrading to subject evidence",
			zap.String("email", email),
			zap.Error(dirErr),
		)
		identities = nil
	}
	resolution.Identities = identities
	resolution.Native = directory.Native(identities)

	if account != nil {
		resolution.AccountID = account.AccountID
		return resolution, nil
	}
	if resolution.Native != nil && resolution.Native.Subject != "" {
		resolution.AccountID = resolution.Native.Subject
	}
	return resolution, nil
}

func (s *resolverService) emailFromSubject(ctx context.Context, subjectID string) string {
	identities, err := s.directory.FindBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Warn("Directory subject lookup failed during resolution",
			zap.String("subject", subjectID),
			zap.Error(err),
		)
		return ""
	}
	if len(identities) == 0 {
		return ""
	}
	return utils.NormalizeEmail(identities[0].Email)
}
