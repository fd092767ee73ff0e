package dto

// DiscoverRequest asks which login methods exist for an email. Email syntax
// is validated in the service layer after normalization, so inputs like
// "A@X.com " are accepted here and trimmed there.
type DiscoverRequest struct {
	Email string `json:"email" binding:"required"`
}

// DiscoverResponse is the discovery state machine result. Known and unknown
// emails share this shape so responses do not leak account existence.
type DiscoverResponse struct {
	Email      string   `json:"email"`
	Methods    []string `json:"methods"`
	NextAction string   `json:"nextAction"`
}

// MethodEntry describes one login method attached to the account
type MethodEntry struct {
	Method        string `json:"method"`
	Provider      string `json:"provider,omitempty"`
	CurrentlyUsed bool   `json:"currentlyUsed"`
	LinkedAt      string `json:"linkedAt,omitempty"`
}

// MethodsResponse lists the login methods of the authenticated account
type MethodsResponse struct {
	AccountID string        `json:"accountId"`
	Methods   []MethodEntry `json:"methods"`
}

// PasswordSetupStartRequest begins email verification for password setup
type PasswordSetupStartRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordSetupCompleteRequest finishes the public password setup flow
type PasswordSetupCompleteRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// SetPasswordRequest sets a password for an authenticated session
type SetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

// SuccessResponse is the generic acknowledgement body
type SuccessResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// TriggerEventRequest mirrors the directory's lifecycle event payload. The
// handler echoes the event back unchanged on success, the way the directory
// expects trigger responders to behave.
type TriggerEventRequest struct {
	TriggerSource string `json:"triggerSource" binding:"required"`
	UserPoolID    string `json:"userPoolId"`
	UserName      string `json:"userName" binding:"required"`
	Request       struct {
		UserAttributes map[string]string `json:"userAttributes"`
	} `json:"request"`
	Response map[string]any `json:"response,omitempty"`
}
