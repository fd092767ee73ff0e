package domain

import (
	"encoding/json"
	"strings"
)

// Directory trigger sources handled by the lifecycle service. Any other
// source is acknowledged unchanged.
const (
	TriggerPostConfirmation   = "PostConfirmation_ConfirmSignUp"
	TriggerPostAuthentication = "PostAuthentication_Authentication"
	TriggerPreSignupExternal  = "PreSignUp_ExternalProvider"
)

// TriggerEvent is a lifecycle event delivered by the identity directory. The
// handler must acknowledge the event unchanged on success; raising blocks the
// directory operation that fired it.
type TriggerEvent struct {
	TriggerSource  string
	UserPoolID     string
	UserName       string
	UserAttributes map[string]string
}

func (e *TriggerEvent) attribute(name string) string {
	if e.UserAttributes == nil {
		return ""
	}
	return e.UserAttributes[name]
}

// Subject returns the directory subject identifier of the triggering user.
func (e *TriggerEvent) Subject() string {
	return e.attribute("sub")
}

// Email returns the raw (unnormalized) email attribute.
func (e *TriggerEvent) Email() string {
	return e.attribute("email")
}

// EmailVerified reports whether the directory marked the email verified.
func (e *TriggerEvent) EmailVerified() bool {
	return strings.EqualFold(e.attribute("email_verified"), "true")
}

// IdentitiesAttr returns the raw federated identities claim payload.
func (e *TriggerEvent) IdentitiesAttr() string {
	return e.attribute("identities")
}

// ProviderClaim is one entry of the directory's identities attribute.
type ProviderClaim struct {
	ProviderName string `json:"providerName"`
	// Provider payloads are inconsistent about the subject field name.
	UserID         string `json:"userId"`
	ProviderUserID string `json:"providerUserId"`
}

// Subject returns whichever subject field the provider populated.
func (c ProviderClaim) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.ProviderUserID
}

// ParseIdentityClaims decodes the identities attribute into provider claims.
// Malformed payloads yield nil; the caller treats that as missing context.
func ParseIdentityClaims(raw string) []ProviderClaim {
	if raw == "" {
		return nil
	}
	var claims []ProviderClaim
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		return nil
	}
	return claims
}

// ProviderContext extracts the provider name and subject from the first
// identities claim entry. ok is false when either is missing, which is fatal
// for linking that login.
func ProviderContext(raw string) (provider, subject string, ok bool) {
	claims := ParseIdentityClaims(raw)
	if len(claims) == 0 {
		return "", "", false
	}
	provider = claims[0].ProviderName
	subject = claims[0].Subject()
	if provider == "" || subject == "" {
		return "", "", false
	}
	return provider, subject, true
}

// Evidence is a fragment of identity evidence to resolve into a canonical
// account: a live session's subject (with optional email) or a bare email
// from a pre-auth request.
type Evidence struct {
	SubjectID string
	Email     string
}
