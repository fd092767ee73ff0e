package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/dto"
)

func (s *Suite) postJSON(path string, payload any, token string) (*http.Response, []byte) {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+path, bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *Suite) getJSON(path, token string) (*http.Response, []byte) {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *Suite) fireTrigger(path, triggerSource, username string, attrs map[string]string) {
	payload := map[string]any{
		"triggerSource": triggerSource,
		"userPoolId":    "us-east-1_testpool",
		"userName":      username,
		"request": map[string]any{
			"userAttributes": attrs,
		},
	}
	resp, body := s.postJSON(path, payload, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, "trigger failed: %s", string(body))
}

func (s *Suite) discover(email string) dto.DiscoverResponse {
	resp, body := s.postJSON("/api/v1/auth/discover", dto.DiscoverRequest{Email: email}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, "discover failed: %s", string(body))

	var result dto.DiscoverResponse
	s.Require().NoError(json.Unmarshal(body, &result))
	return result
}

func (s *Suite) TestDiscoverUnknownEmail() {
	result := s.discover("nobody@example.com")

	s.Equal("nobody@example.com", result.Email)
	s.Equal([]string{"password", "google", "facebook"}, result.Methods)
	s.Equal("signup_or_signin", result.NextAction)
}

func (s *Suite) TestDiscoverRejectsInvalidEmail() {
	resp, _ := s.postJSON("/api/v1/auth/discover", map[string]string{"email": "nope"}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestNativeSignupLifecycle() {
	s.fireTrigger("/internal/triggers/post-confirmation", domain.TriggerPostConfirmation,
		"user@example.com", map[string]string{
			"sub":            "native-sub-1",
			"email":          "user@example.com",
			"email_verified": "true",
		})

	s.Directory.AddIdentity(directory.Identity{
		Username:      "user@example.com",
		Subject:       "native-sub-1",
		Email:         "user@example.com",
		EmailVerified: true,
	})

	result := s.discover(" User@Example.com ")
	s.Equal("user@example.com", result.Email)
	s.Equal([]string{"password"}, result.Methods)
	s.Equal("password", result.NextAction)
}

func (s *Suite) TestFederatedSignupThenPasswordSetup() {
	const email = "social@example.com"

	// The directory auto-provisioned a federated identity on first social login.
	s.Directory.AddIdentity(directory.Identity{
		Username:              "google_g-777",
		Subject:               "fed-sub-777",
		Email:                 email,
		EmailVerified:         true,
		ExternallyProvisioned: true,
		IdentitiesAttr:        `[{"providerName":"Google","userId":"g-777"}]`,
	})

	s.fireTrigger("/internal/triggers/post-confirmation", domain.TriggerPostConfirmation,
		"google_g-777", map[string]string{
			"sub":            "fed-sub-777",
			"email":          email,
			"email_verified": "true",
			"identities":     `[{"providerName":"Google","userId":"g-777"}]`,
		})

	result := s.discover(email)
	s.Equal([]string{"google"}, result.Methods)
	s.Equal("social", result.NextAction)

	// Add a password through the public flow.
	resp, _ := s.postJSON("/api/v1/auth/password-setup/start", dto.PasswordSetupStartRequest{Email: email}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.postJSON("/api/v1/auth/password-setup/complete", dto.PasswordSetupCompleteRequest{
		Email:       email,
		Code:        confirmationCode,
		NewPassword: "long-enough-password",
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, "complete failed: %s", string(body))

	result = s.discover("Social@Example.com ")
	s.Equal(email, result.Email)
	s.ElementsMatch([]string{"password", "google"}, result.Methods)
	s.Equal("choose_method", result.NextAction)
}

func (s *Suite) TestPasswordSetupWrongCode() {
	const email = "wrongcode@example.com"

	resp, _ := s.postJSON("/api/v1/auth/password-setup/start", dto.PasswordSetupStartRequest{Email: email}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.postJSON("/api/v1/auth/password-setup/complete", dto.PasswordSetupCompleteRequest{
		Email:       email,
		Code:        "000000",
		NewPassword: "long-enough-password",
	}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.Unmarshal(body, &errResp))
	s.Equal("INVALID_CODE", errResp.Code)
}

func (s *Suite) TestPostAuthenticationAutoLinksAndListsMethods() {
	const email = "linked@example.com"

	s.Directory.AddIdentity(directory.Identity{
		Username:      email,
		Subject:       "native-sub-9",
		Email:         email,
		EmailVerified: true,
	})
	s.Directory.AddIdentity(directory.Identity{
		Username:              "google_g-900",
		Subject:               "fed-sub-900",
		Email:                 email,
		EmailVerified:         true,
		ExternallyProvisioned: true,
		IdentitiesAttr:        `[{"providerName":"Google","userId":"g-900"}]`,
	})

	s.fireTrigger("/internal/triggers/post-confirmation", domain.TriggerPostConfirmation,
		email, map[string]string{
			"sub":            "native-sub-9",
			"email":          email,
			"email_verified": "true",
		})

	s.fireTrigger("/internal/triggers/post-authentication", domain.TriggerPostAuthentication,
		"google_g-900", map[string]string{
			"sub":        "fed-sub-900",
			"email":      email,
			"identities": `[{"providerName":"Google","userId":"g-900"}]`,
		})

	token, err := s.Tokens.Generate("native-sub-9", "google_g-900", email, time.Now())
	s.Require().NoError(err)

	resp, body := s.getJSON("/api/v1/auth/methods", token)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "methods failed: %s", string(body))

	var methods dto.MethodsResponse
	s.Require().NoError(json.Unmarshal(body, &methods))
	s.Equal("native-sub-9", methods.AccountID)

	names := make([]string, 0, len(methods.Methods))
	for _, entry := range methods.Methods {
		names = append(names, entry.Method)
		if entry.Method == "google" {
			s.True(entry.CurrentlyUsed)
		}
	}
	s.ElementsMatch([]string{"password", "google"}, names)
}

func (s *Suite) TestMethodsRequiresToken() {
	resp, _ := s.getJSON("/api/v1/auth/methods", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestSetPasswordRequiresRecentAuth() {
	s.Directory.AddIdentity(directory.Identity{
		Username:      "stale@example.com",
		Subject:       "native-sub-5",
		Email:         "stale@example.com",
		EmailVerified: true,
	})

	token, err := s.Tokens.Generate("native-sub-5", "stale@example.com", "stale@example.com",
		time.Now().Add(-time.Hour))
	s.Require().NoError(err)

	resp, body := s.postJSON("/api/v1/auth/set-password", dto.SetPasswordRequest{
		NewPassword: "long-enough-password",
	}, token)
	s.Equal(http.StatusUnauthorized, resp.StatusCode, "body: %s", string(body))

	var errResp dto.ErrorResponse
	s.Require().NoError(json.Unmarshal(body, &errResp))
	s.Equal("RECENT_AUTH_REQUIRED", errResp.Code)
}

func (s *Suite) TestAuditTrailRecordsLifecycle() {
	s.fireTrigger("/internal/triggers/post-confirmation", domain.TriggerPostConfirmation,
		"audited@example.com", map[string]string{
			"sub":            "native-sub-7",
			"email":          "audited@example.com",
			"email_verified": "true",
		})

	var action string
	err := s.Postgres.DB.QueryRow(
		"SELECT action FROM audit_events WHERE account_id = $1 ORDER BY event_id ASC LIMIT 1",
		"native-sub-7",
	).Scan(&action)
	s.Require().NoError(err)
	s.Equal(domain.ActionPostConfirmationSignup, action)
}

func (s *Suite) TestTriggerEchoesEvent() {
	payload := map[string]any{
		"triggerSource": domain.TriggerPreSignupExternal,
		"userPoolId":    "us-east-1_testpool",
		"userName":      "google_g-1",
		"request": map[string]any{
			"userAttributes": map[string]string{
				"email":          "fresh@example.com",
				"email_verified": "true",
			},
		},
	}

	resp, body := s.postJSON("/internal/triggers/pre-signup", payload, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var echoed map[string]any
	s.Require().NoError(json.Unmarshal(body, &echoed))
	s.Equal(domain.TriggerPreSignupExternal, echoed["triggerSource"])
	s.Equal("google_g-1", echoed["userName"])
}
