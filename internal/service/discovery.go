package service

import (
	"context"
	"fmt"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/utils"
)

// discoveryService implements Discovery
type discoveryService struct {
	resolver Resolver
	methods  Methods
}

// NewDiscovery creates a new discovery state machine
func NewDiscovery(resolver Resolver, methods Methods) Discovery {
	return &discoveryService{
		resolver: resolver,
		methods:  methods,
	}
}

// Discover computes the methods and next action for an email. The response
// shape is identical whether or not an account exists: unknown emails get
// the full supported-method set and signup_or_signin, so the endpoint cannot
// be used to enumerate accounts.
func (s *discoveryService) Discover(ctx context.Context, email string) (*domain.Discovery, error) {
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("email is required: %w", ErrValidation)
	}
	normalized := utils.NormalizeEmail(email)

	resolution, err := s.resolver.ResolveEvidence(ctx, domain.Evidence{Email: normalized})
	if err != nil {
		return nil, err
	}

	if len(resolution.Identities) == 0 {
		return &domain.Discovery{
			Email:      normalized,
			Methods:    domain.SupportedMethods(),
			NextAction: domain.NextActionSignupOrSignin,
		}, nil
	}

	chosen := resolution.Native
	if chosen == nil {
		chosen = &resolution.Identities[0]
	}

	infos, err := s.methods.MethodsFor(ctx, resolution.AccountID, []directory.Identity{*chosen}, nil)
	if err != nil {
		return nil, err
	}

	methods := make([]domain.Method, 0, len(infos))
	for _, info := range infos {
		methods = append(methods, info.Method)
	}

	return &domain.Discovery{
		Email:      normalized,
		Methods:    methods,
		NextAction: nextAction(chosen.EmailVerified, methods),
	}, nil
}

// nextAction applies the state machine in strict priority order: the
// verification gate is checked before any method counting, so an unverified
// native identity is never offered as a ready login path.
func nextAction(emailVerified bool, methods []domain.Method) domain.NextAction {
	hasPassword := false
	for _, m := range methods {
		if m == domain.MethodPassword {
			hasPassword = true
			break
		}
	}

	switch {
	case !emailVerified:
		return domain.NextActionNeedsVerification
	case len(methods) == 1 && hasPassword:
		return domain.NextActionPassword
	case hasPassword:
		return domain.NextActionChooseMethod
	default:
		return domain.NextActionSocial
	}
}
