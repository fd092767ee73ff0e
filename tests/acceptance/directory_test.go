package acceptance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
)

const confirmationCode = "123456"

type memoryIdentity struct {
	directory.Identity
	Password  string
	Confirmed bool
}

// memoryDirectory is an in-memory stand-in for the hosted identity directory,
// faithful enough to drive the full signup, confirmation and linking flows.
type memoryDirectory struct {
	mu         sync.Mutex
	identities map[string]*memoryIdentity
	links      map[string]string // provider/subject -> native username
	sequence   int
}

func newMemoryDirectory() *memoryDirectory {
	d := &memoryDirectory{}
	d.Reset()
	return d
}

func (d *memoryDirectory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.identities = make(map[string]*memoryIdentity)
	d.links = make(map[string]string)
	d.sequence = 0
}

// AddIdentity seeds a pre-existing identity, e.g. a federated login that the
// directory auto-provisioned before the test begins.
func (d *memoryDirectory) AddIdentity(identity directory.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.identities[identity.Username] = &memoryIdentity{Identity: identity, Confirmed: true}
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) ([]directory.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found []directory.Identity
	for _, identity := range d.identities {
		if strings.EqualFold(identity.Email, email) {
			found = append(found, identity.Identity)
		}
	}
	return found, nil
}

func (d *memoryDirectory) FindBySubject(_ context.Context, subject string) ([]directory.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found []directory.Identity
	for _, identity := range d.identities {
		if identity.Subject == subject {
			found = append(found, identity.Identity)
		}
	}
	return found, nil
}

func (d *memoryDirectory) CreateNativeIdentity(_ context.Context, email string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sequence++
	identity := &memoryIdentity{
		Identity: directory.Identity{
			Username:      email,
			Subject:       fmt.Sprintf("native-%d", d.sequence),
			Email:         email,
			EmailVerified: true,
		},
		Confirmed: true,
	}
	d.identities[email] = identity
	return email, nil
}

func (d *memoryDirectory) SetPassword(_ context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, exists := d.identities[username]
	if !exists {
		return fmt.Errorf("identity %s not found", username)
	}
	identity.Password = password
	identity.Confirmed = true
	identity.EmailVerified = true
	return nil
}

func (d *memoryDirectory) SignUp(_ context.Context, email, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, exists := d.identities[email]; exists && !existing.ExternallyProvisioned {
		return directory.ErrIdentityExists
	}
	d.sequence++
	d.identities[email] = &memoryIdentity{
		Identity: directory.Identity{
			Username: email,
			Subject:  fmt.Sprintf("native-%d", d.sequence),
			Email:    email,
		},
		Password: password,
	}
	return nil
}

func (d *memoryDirectory) ResendConfirmationCode(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, exists := d.identities[email]
	if !exists {
		return fmt.Errorf("identity %s not found", email)
	}
	if identity.Confirmed {
		return directory.ErrAlreadyConfirmed
	}
	return nil
}

func (d *memoryDirectory) ConfirmSignUp(_ context.Context, email, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, exists := d.identities[email]
	if !exists {
		return directory.ErrInvalidCode
	}
	if identity.Confirmed {
		return directory.ErrAlreadyConfirmed
	}
	if code != confirmationCode {
		return directory.ErrInvalidCode
	}
	identity.Confirmed = true
	identity.EmailVerified = true
	return nil
}

func (d *memoryDirectory) LinkIdentities(_ context.Context, nativeUsername, providerName, providerSubject string) (domain.LinkOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.identities[nativeUsername]; !exists {
		return "", fmt.Errorf("identity %s not found", nativeUsername)
	}

	key := providerName + "/" + providerSubject
	if linked, exists := d.links[key]; exists {
		if linked == nativeUsername {
			return domain.LinkOutcomeAlreadyLinked, nil
		}
		return domain.LinkOutcomeConflict, nil
	}
	d.links[key] = nativeUsername
	return domain.LinkOutcomeLinked, nil
}

var _ directory.Directory = (*memoryDirectory)(nil)
