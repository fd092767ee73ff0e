package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prkovalenko/identity-link-service/internal/directory"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/dto"
	"github.com/prkovalenko/identity-link-service/internal/service"
	"go.uber.org/zap"
)

// IdentityHandler serves the client-facing identity endpoints
type IdentityHandler struct {
	discovery     service.Discovery
	methods       service.Methods
	resolver      service.Resolver
	passwordSetup service.PasswordSetup
	logger        *zap.Logger
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(
	discovery service.Discovery,
	methods service.Methods,
	resolver service.Resolver,
	passwordSetup service.PasswordSetup,
	logger *zap.Logger,
) *IdentityHandler {
	return &IdentityHandler{
		discovery:     discovery,
		methods:       methods,
		resolver:      resolver,
		passwordSetup: passwordSetup,
		logger:        logger,
	}
}

// Discover handles POST /api/v1/auth/discover
func (h *IdentityHandler) Discover(c *gin.Context) {
	var req dto.DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "email is required",
		})
		return
	}

	result, err := h.discovery.Discover(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	methods := make([]string, 0, len(result.Methods))
	for _, m := range result.Methods {
		methods = append(methods, string(m))
	}

	c.JSON(http.StatusOK, dto.DiscoverResponse{
		Email:      result.Email,
		Methods:    methods,
		NextAction: string(result.NextAction),
	})
}

// ListMethods handles GET /api/v1/auth/methods for an authenticated session
func (h *IdentityHandler) ListMethods(c *gin.Context) {
	claims := SessionClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Session required",
		})
		return
	}

	resolution, err := h.resolver.ResolveEvidence(c.Request.Context(), domain.Evidence{
		SubjectID: claims.Subject,
		Email:     claims.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	infos, err := h.methods.MethodsFor(c.Request.Context(), resolution.AccountID, resolution.Identities, claims)
	if err != nil {
		h.respondError(c, err)
		return
	}

	entries := make([]dto.MethodEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, dto.MethodEntry{
			Method:        string(info.Method),
			Provider:      info.Provider,
			CurrentlyUsed: info.CurrentlyUsed,
			LinkedAt:      info.LinkedAt,
		})
	}

	c.JSON(http.StatusOK, dto.MethodsResponse{
		AccountID: resolution.AccountID,
		Methods:   entries,
	})
}

// PasswordSetupStart handles POST /api/v1/auth/password-setup/start. The
// response is the same for known and unknown emails.
func (h *IdentityHandler) PasswordSetupStart(c *gin.Context) {
	var req dto.PasswordSetupStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "email is required",
		})
		return
	}

	if err := h.passwordSetup.Start(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// PasswordSetupComplete handles POST /api/v1/auth/password-setup/complete
func (h *IdentityHandler) PasswordSetupComplete(c *gin.Context) {
	var req dto.PasswordSetupCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "email, code and newPassword are required",
		})
		return
	}

	if err := h.passwordSetup.Complete(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// SetPassword handles POST /api/v1/auth/set-password for a recently
// authenticated session
func (h *IdentityHandler) SetPassword(c *gin.Context) {
	claims := SessionClaims(c)

	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "newPassword is required",
		})
		return
	}

	if err := h.passwordSetup.SetPassword(c.Request.Context(), claims, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{OK: true})
}

// respondError maps engine errors onto HTTP statuses. Anything unmapped is a
// directory or store failure and surfaces as a 502 without internal detail.
func (h *IdentityHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
		})
	case errors.Is(err, directory.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid or expired verification code",
			Code:    "INVALID_CODE",
		})
	case errors.Is(err, service.ErrNativeIdentityMissing):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "No password-capable identity exists for this email",
			Code:    "NATIVE_USER_MISSING",
		})
	case errors.Is(err, service.ErrLinkConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Conflict",
			Message: "A sign-in provider for this email is already linked to another account",
			Code:    "PROVIDER_LINK_CONFLICT",
		})
	case errors.Is(err, service.ErrRecentAuthRequired):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Recent authentication required",
			Code:    "RECENT_AUTH_REQUIRED",
		})
	case errors.Is(err, directory.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "Too Many Requests",
			Message: "Please retry later",
		})
	default:
		h.logger.Error("Identity operation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad Gateway",
			Message: "Upstream identity operation failed",
		})
	}
}
