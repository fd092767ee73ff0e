package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/repository"
)

// fakeAccounts is an in-memory AccountRepository with the same conditional
// write semantics as the SQL implementation.
type fakeAccounts struct {
	mu       sync.Mutex
	rows     map[string]*domain.Account
	failWith error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{rows: make(map[string]*domain.Account)}
}

func (f *fakeAccounts) CreateIfAbsent(_ context.Context, account *domain.Account) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	if _, exists := f.rows[account.AccountID]; exists {
		return false, nil
	}
	copied := *account
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	if copied.Status == "" {
		copied.Status = domain.AccountStatusActive
	}
	f.rows[account.AccountID] = &copied
	return true, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, accountID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	account, exists := f.rows[accountID]
	if !exists {
		return nil, fmt.Errorf("account %s: %w", accountID, repository.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, normalizedEmail string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var oldest *domain.Account
	for _, account := range f.rows {
		if account.NormalizedEmail != normalizedEmail {
			continue
		}
		if oldest == nil || account.CreatedAt.Before(oldest.CreatedAt) {
			oldest = account
		}
	}
	if oldest == nil {
		return nil, fmt.Errorf("email %s: %w", normalizedEmail, repository.ErrNotFound)
	}
	copied := *oldest
	return &copied, nil
}

func (f *fakeAccounts) Touch(_ context.Context, accountID, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	account, exists := f.rows[accountID]
	if !exists {
		return fmt.Errorf("account %s: %w", accountID, repository.ErrNotFound)
	}
	account.Source = source
	account.UpdatedAt = time.Now().UTC()
	return nil
}

// fakeAuthMethods keys rows by (account, upper provider), matching the
// primary key of the SQL implementation.
type fakeAuthMethods struct {
	mu       sync.Mutex
	rows     map[string]*domain.AuthMethod
	failWith error
}

func newFakeAuthMethods() *fakeAuthMethods {
	return &fakeAuthMethods{rows: make(map[string]*domain.AuthMethod)}
}

func methodKey(accountID, provider string) string {
	return accountID + "/" + provider
}

func (f *fakeAuthMethods) CreateIfAbsent(_ context.Context, method *domain.AuthMethod) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	if method.Provider == "" {
		method.Provider = strings.ToUpper(method.ProviderName)
	}
	if method.LinkedAt.IsZero() {
		method.LinkedAt = time.Now().UTC()
	}
	key := methodKey(method.AccountID, method.Provider)
	if _, exists := f.rows[key]; exists {
		return false, nil
	}
	copied := *method
	f.rows[key] = &copied
	return true, nil
}

func (f *fakeAuthMethods) ListByAccount(_ context.Context, accountID string) ([]*domain.AuthMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var methods []*domain.AuthMethod
	for _, method := range f.rows {
		if method.AccountID == accountID {
			copied := *method
			methods = append(methods, &copied)
		}
	}
	for i := 0; i < len(methods); i++ {
		for j := i + 1; j < len(methods); j++ {
			if methods[j].LinkedAt.Before(methods[i].LinkedAt) {
				methods[i], methods[j] = methods[j], methods[i]
			}
		}
	}
	return methods, nil
}

func (f *fakeAuthMethods) get(accountID, provider string) *domain.AuthMethod {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[methodKey(accountID, provider)]
}

type fakeAuditEvents struct {
	mu       sync.Mutex
	events   []*domain.AuditEvent
	failWith error
}

func newFakeAuditEvents() *fakeAuditEvents {
	return &fakeAuditEvents{}
}

func (f *fakeAuditEvents) Append(_ context.Context, event *domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	copied := *event
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeAuditEvents) ListByAccount(_ context.Context, accountID string) ([]*domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*domain.AuditEvent
	for _, event := range f.events {
		if event.AccountID == accountID {
			copied := *event
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeAuditEvents) actions(accountID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var actions []string
	for _, event := range f.events {
		if event.AccountID == accountID {
			actions = append(actions, event.Action)
		}
	}
	return actions
}

// linkCall records one LinkIdentities invocation on the fake directory.
type linkCall struct {
	NativeUsername  string
	ProviderName    string
	ProviderSubject string
}

// fakeDirectory is a scriptable in-memory Directory.
type fakeDirectory struct {
	mu         sync.Mutex
	identities []directory.Identity

	linkOutcome  domain.LinkOutcome
	linkErr      error
	linkOutcomes map[string]domain.LinkOutcome
	linkCalls    []linkCall

	findErr        error
	signUpErr      error
	confirmErr     error
	resendErr      error
	setPasswordErr error
	createErr      error

	passwords  map[string]string
	signUps    []string
	resends    []string
	confirms   map[string]string
	created    []string
	createName string
}

func newFakeDirectory(identities ...directory.Identity) *fakeDirectory {
	return &fakeDirectory{
		identities:  identities,
		linkOutcome: domain.LinkOutcomeLinked,
		passwords:   make(map[string]string),
		confirms:    make(map[string]string),
	}
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) ([]directory.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var found []directory.Identity
	for _, identity := range f.identities {
		if strings.EqualFold(identity.Email, email) {
			found = append(found, identity)
		}
	}
	return found, nil
}

func (f *fakeDirectory) FindBySubject(_ context.Context, subject string) ([]directory.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var found []directory.Identity
	for _, identity := range f.identities {
		if identity.Subject == subject {
			found = append(found, identity)
		}
	}
	return found, nil
}

func (f *fakeDirectory) CreateNativeIdentity(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, email)
	username := f.createName
	if username == "" {
		username = email
	}
	f.identities = append(f.identities, directory.Identity{
		Username:      username,
		Subject:       "sub-" + username,
		Email:         email,
		EmailVerified: true,
	})
	return username, nil
}

func (f *fakeDirectory) SetPassword(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setPasswordErr != nil {
		return f.setPasswordErr
	}
	f.passwords[username] = password
	return nil
}

func (f *fakeDirectory) SignUp(_ context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return f.signUpErr
	}
	f.signUps = append(f.signUps, email)
	return nil
}

func (f *fakeDirectory) ResendConfirmationCode(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resendErr != nil {
		return f.resendErr
	}
	f.resends = append(f.resends, email)
	return nil
}

func (f *fakeDirectory) ConfirmSignUp(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirms[email] = code
	return nil
}

func (f *fakeDirectory) LinkIdentities(_ context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls = append(f.linkCalls, linkCall{
		NativeUsername:  nativeUsername,
		ProviderName:    providerName,
		ProviderSubject: providerSubject,
	})
	if f.linkErr != nil {
		return "", f.linkErr
	}
	if outcome, ok := f.linkOutcomes[providerName]; ok {
		return outcome, nil
	}
	return f.linkOutcome, nil
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)
var _ repository.AuthMethodRepository = (*fakeAuthMethods)(nil)
var _ repository.AuditEventRepository = (*fakeAuditEvents)(nil)
var _ directory.Directory = (*fakeDirectory)(nil)
