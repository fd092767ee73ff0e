package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
)

// methodsService implements Methods
type methodsService struct {
	methods repository.AuthMethodRepository
}

// NewMethods creates a new method inference engine
func NewMethods(methods repository.AuthMethodRepository) Methods {
	return &methodsService{methods: methods}
}

// MethodsFor combines three independent signals into the set of known login
// methods, deduplicated in first-seen order:
//
//   - durable method rows (authoritative once present),
//   - the identities claim on the directory identities, which covers methods
//     observed before their linking write landed,
//   - the username-prefix convention, as a fallback when the other signals
//     produce nothing.
//
// When a session is in scope, the method matching the session's own username
// is flagged as currently used.
func (s *methodsService) MethodsFor(ctx context.Context, accountID string, identities []directory.Identity, claims *domain.SessionClaims) ([]domain.MethodInfo, error) {
	var infos []domain.MethodInfo
	seen := make(map[domain.Method]bool)

	add := func(info domain.MethodInfo) {
		if info.Method == "" || seen[info.Method] {
			return
		}
		seen[info.Method] = true
		infos = append(infos, info)
	}

	if accountID != "" {
		rows, err := s.methods.ListByAccount(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load durable auth methods: %w", err)
		}
		for _, row := range rows {
			add(domain.MethodInfo{
				Method:   domain.ProviderToMethod(row.ProviderName),
				Provider: row.ProviderName,
				LinkedAt: row.LinkedAt.UTC().Format(time.RFC3339),
				Verified: row.Verified,
			})
		}
	}

	for _, identity := range identities {
		for _, claim := range domain.ParseIdentityClaims(identity.IdentitiesAttr) {
			add(domain.MethodInfo{
				Method:   domain.ProviderToMethod(claim.ProviderName),
				Provider: claim.ProviderName,
				Verified: identity.EmailVerified,
			})
		}
	}

	if len(infos) == 0 {
		for _, identity := range identities {
			if identity.Username == "" {
				continue
			}
			add(domain.MethodInfo{
				Method:   domain.UsernameMethodHint(identity.Username),
				Verified: identity.EmailVerified,
			})
		}
	}
	if len(infos) == 0 && claims != nil {
		add(domain.MethodInfo{Method: domain.UsernameMethodHint(claims.EffectiveUsername())})
	}

	if claims != nil {
		current := domain.UsernameMethodHint(claims.EffectiveUsername())
		for i := range infos {
			if infos[i].Method == current {
				infos[i].CurrentlyUsed = true
				break
			}
		}
	}

	return infos, nil
}
