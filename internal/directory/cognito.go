package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/prkovalenko/identity-link-service/internal/domain"
)

const (
	externalProviderStatus = "EXTERNAL_PROVIDER"
	nativeProviderName     = "Cognito"
	subjectAttributeName   = "Cognito_Subject"
)

// Config holds Cognito user pool coordinates.
type Config struct {
	Region     string
	UserPoolID string
	ClientID   string
	// Endpoint overrides the service endpoint, used by local test stacks.
	Endpoint string
}

// CognitoDirectory implements Directory on top of a Cognito user pool.
type CognitoDirectory struct {
	client     *cognitoidentityprovider.Client
	userPoolID string
	clientID   string
}

var _ Directory = &CognitoDirectory{}

// NewCognitoDirectory creates a directory client from the ambient AWS config.
func NewCognitoDirectory(ctx context.Context, cfg Config) (*CognitoDirectory, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := cognitoidentityprovider.NewFromConfig(awsCfg, func(o *cognitoidentityprovider.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &CognitoDirectory{
		client:     client,
		userPoolID: cfg.UserPoolID,
		clientID:   cfg.ClientID,
	}, nil
}

// FindByEmail lists identities whose email attribute matches exactly.
func (d *CognitoDirectory) FindByEmail(ctx context.Context, email string) ([]Identity, error) {
	if email == "" {
		return nil, nil
	}
	return d.listUsers(ctx, fmt.Sprintf("email = %q", email), 10)
}

// FindBySubject lists identities by their subject identifier.
func (d *CognitoDirectory) FindBySubject(ctx context.Context, subject string) ([]Identity, error) {
	if subject == "" {
		return nil, nil
	}
	return d.listUsers(ctx, fmt.Sprintf("sub = %q", subject), 5)
}

func (d *CognitoDirectory) listUsers(ctx context.Context, filter string, limit int32) ([]Identity, error) {
	resp, err := d.client.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
		Filter:     aws.String(filter),
		Limit:      aws.Int32(limit),
	})
	if err != nil {
		return nil, mapError("list users", err)
	}

	identities := make([]Identity, 0, len(resp.Users))
	for _, u := range resp.Users {
		identities = append(identities, identityFromUser(u))
	}
	return identities, nil
}

func identityFromUser(u types.UserType) Identity {
	id := Identity{
		Username:              aws.ToString(u.Username),
		ExternallyProvisioned: string(u.UserStatus) == externalProviderStatus,
	}
	for _, attr := range u.Attributes {
		switch aws.ToString(attr.Name) {
		case "sub":
			id.Subject = aws.ToString(attr.Value)
		case "email":
			id.Email = aws.ToString(attr.Value)
		case "email_verified":
			id.EmailVerified = aws.ToString(attr.Value) == "true"
		case "identities":
			id.IdentitiesAttr = aws.ToString(attr.Value)
		}
	}
	return id
}

// CreateNativeIdentity provisions a confirmed native identity without sending
// any user-facing notification.
func (d *CognitoDirectory) CreateNativeIdentity(ctx context.Context, email string) (string, error) {
	resp, err := d.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:    aws.String(d.userPoolID),
		Username:      aws.String(email),
		MessageAction: types.MessageActionTypeSuppress,
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return "", fmt.Errorf("create native identity: %w", ErrIdentityExists)
		}
		return "", mapError("create native identity", err)
	}
	return aws.ToString(resp.User.Username), nil
}

// SetPassword sets a permanent password on a native identity.
func (d *CognitoDirectory) SetPassword(ctx context.Context, username, password string) error {
	_, err := d.client.AdminSetUserPassword(ctx, &cognitoidentityprovider.AdminSetUserPasswordInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		Permanent:  true,
	})
	if err != nil {
		return mapError("set password", err)
	}
	return nil
}

// SignUp starts a native signup for the email.
func (d *CognitoDirectory) SignUp(ctx context.Context, email, password string) error {
	_, err := d.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(d.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return fmt.Errorf("sign up: %w", ErrIdentityExists)
		}
		return mapError("sign up", err)
	}
	return nil
}

// ResendConfirmationCode re-sends the signup confirmation code.
func (d *CognitoDirectory) ResendConfirmationCode(ctx context.Context, email string) error {
	_, err := d.client.ResendConfirmationCode(ctx, &cognitoidentityprovider.ResendConfirmationCodeInput{
		ClientId: aws.String(d.clientID),
		Username: aws.String(email),
	})
	if err != nil {
		return mapError("resend confirmation code", err)
	}
	return nil
}

// ConfirmSignUp confirms a pending signup with the emailed code.
func (d *CognitoDirectory) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := d.client.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(d.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		var notAuthorized *types.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			// Raised when the identity is already confirmed.
			return fmt.Errorf("confirm sign up: %w", ErrAlreadyConfirmed)
		}
		var mismatch *types.CodeMismatchException
		var expired *types.ExpiredCodeException
		if errors.As(err, &mismatch) || errors.As(err, &expired) {
			return fmt.Errorf("confirm sign up: %w", ErrInvalidCode)
		}
		return mapError("confirm sign up", err)
	}
	return nil
}

// LinkIdentities links a federated identity to the native identity so either
// one authenticates into the same session subject.
func (d *CognitoDirectory) LinkIdentities(ctx context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error) {
	_, err := d.client.AdminLinkProviderForUser(ctx, &cognitoidentityprovider.AdminLinkProviderForUserInput{
		UserPoolId: aws.String(d.userPoolID),
		DestinationUser: &types.ProviderUserIdentifierType{
			ProviderName:           aws.String(nativeProviderName),
			ProviderAttributeValue: aws.String(nativeUsername),
		},
		SourceUser: &types.ProviderUserIdentifierType{
			ProviderName:           aws.String(providerName),
			ProviderAttributeName:  aws.String(subjectAttributeName),
			ProviderAttributeValue: aws.String(providerSubject),
		},
	})
	if err != nil {
		if outcome, ok := linkOutcomeFromError(err); ok {
			return outcome, nil
		}
		return "", mapError("link identities", err)
	}
	return domain.LinkOutcomeLinked, nil
}

// resourceConflictErrorCode has no typed exception in the SDK; it is matched
// by its wire code.
const resourceConflictErrorCode = "ResourceConflictException"

// linkOutcomeFromError maps the directory's link failures onto outcomes. An
// existing same-direction link is reported as an invalid parameter; a link
// to a different native identity comes back as an alias or resource
// conflict.
func linkOutcomeFromError(err error) (domain.LinkOutcome, bool) {
	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) {
		return domain.LinkOutcomeAlreadyLinked, true
	}
	var alias *types.AliasExistsException
	if errors.As(err, &alias) {
		return domain.LinkOutcomeConflict, true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == resourceConflictErrorCode {
		return domain.LinkOutcomeConflict, true
	}
	return "", false
}

func mapError(op string, err error) error {
	var tooMany *types.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}
	return fmt.Errorf("%s: %w", op, err)
}
