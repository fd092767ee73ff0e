package domain

import "strings"

// Method is a client-facing login method. Provider names arrive from several
// noisy signals in inconsistent casing; everything funnels through
// ProviderToMethod so that one provider always normalizes to one Method.
type Method string

const (
	MethodPassword Method = "password"
	MethodGoogle   Method = "google"
	MethodFacebook Method = "facebook"
	MethodApple    Method = "apple"
)

// Provider names as known to the identity directory.
const (
	ProviderNative   = "COGNITO"
	ProviderGoogle   = "Google"
	ProviderFacebook = "Facebook"
	ProviderApple    = "SignInWithApple"
	ProviderUnknown  = "UNKNOWN"
)

// NextAction tells the client what to do for a discovered email.
type NextAction string

const (
	NextActionSignupOrSignin    NextAction = "signup_or_signin"
	NextActionNeedsVerification NextAction = "needs_verification"
	NextActionPassword          NextAction = "password"
	NextActionChooseMethod      NextAction = "choose_method"
	NextActionSocial            NextAction = "social"
)

// LinkOutcome is the result of an idempotent linking operation. AlreadyLinked
// is a success, Conflict is terminal and must never be auto-resolved.
type LinkOutcome string

const (
	LinkOutcomeLinked        LinkOutcome = "linked"
	LinkOutcomeAlreadyLinked LinkOutcome = "already_linked"
	LinkOutcomeConflict      LinkOutcome = "conflict"
)

// MethodInfo is one inferred login method with its supporting metadata.
type MethodInfo struct {
	Method        Method
	Provider      string
	LinkedAt      string
	Verified      bool
	CurrentlyUsed bool
}

// Discovery is the client-visible status computed for an email address.
type Discovery struct {
	Email      string
	Methods    []Method
	NextAction NextAction
}

// SupportedMethods is the full set advertised for unknown emails, so that a
// discovery response never reveals whether an account exists.
func SupportedMethods() []Method {
	return []Method{MethodPassword, MethodGoogle, MethodFacebook}
}

// ProviderToMethod maps a directory provider name to a Method. Unmapped
// providers pass through lower-cased.
func ProviderToMethod(provider string) Method {
	switch strings.ToUpper(provider) {
	case ProviderNative:
		return MethodPassword
	case "GOOGLE":
		return MethodGoogle
	case "FACEBOOK":
		return MethodFacebook
	case "SIGNINWITHAPPLE":
		return MethodApple
	default:
		return Method(strings.ToLower(provider))
	}
}

// UsernameMethodHint infers a Method from the directory username convention
// <provider>_<subject>. A username without the prefix is a native identity,
// which implies password. This is a fragile string convention: it is a
// fallback signal only and never overrides a durable method row.
func UsernameMethodHint(username string) Method {
	prefix, _, ok := strings.Cut(username, "_")
	if !ok {
		return MethodPassword
	}
	switch strings.ToLower(prefix) {
	case "google":
		return MethodGoogle
	case "facebook":
		return MethodFacebook
	case "signinwithapple":
		return MethodApple
	default:
		return Method(strings.ToLower(prefix))
	}
}

// ProviderFromUsername recovers the directory provider name from the
// federated username convention. Empty when the username carries no
// recognizable provider prefix.
func ProviderFromUsername(username string) string {
	prefix, _, ok := strings.Cut(username, "_")
	if !ok {
		return ""
	}
	switch strings.ToLower(prefix) {
	case "google":
		return ProviderGoogle
	case "facebook":
		return ProviderFacebook
	case "signinwithapple":
		return ProviderApple
	default:
		return ""
	}
}

// SubjectFromUsername extracts the provider subject from a federated
// username of the form <provider>_<subject>.
func SubjectFromUsername(username string) string {
	_, subject, ok := strings.Cut(username, "_")
	if !ok {
		return ""
	}
	return subject
}
