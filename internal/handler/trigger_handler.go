package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/dto"
	"github.com/prkovalenko/identity-link-service/internal/service"
	"go.uber.org/zap"
)

// TriggerHandler serves the internal directory lifecycle endpoints. The
// directory blocks its own operation until the responder answers, so a
// success must echo the event back and an error carries only a status.
type TriggerHandler struct {
	lifecycle service.Lifecycle
	logger    *zap.Logger
}

// NewTriggerHandler creates a new trigger handler
func NewTriggerHandler(lifecycle service.Lifecycle, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// PreSignup handles POST /internal/triggers/pre-signup
func (h *TriggerHandler) PreSignup(c *gin.Context) {
	h.handle(c, h.lifecycle.PreSignupExternal)
}

// PostConfirmation handles POST /internal/triggers/post-confirmation
func (h *TriggerHandler) PostConfirmation(c *gin.Context) {
	h.handle(c, h.lifecycle.PostConfirmation)
}

// PostAuthentication handles POST /internal/triggers/post-authentication
func (h *TriggerHandler) PostAuthentication(c *gin.Context) {
	h.handle(c, h.lifecycle.PostAuthentication)
}

func (h *TriggerHandler) handle(c *gin.Context, fn func(ctx context.Context, event *domain.TriggerEvent) error) {
	var req dto.TriggerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad Request",
			Message: "triggerSource and userName are required",
		})
		return
	}

	event := &domain.TriggerEvent{
		TriggerSource:  req.TriggerSource,
		UserPoolID:     req.UserPoolID,
		UserName:       req.UserName,
		UserAttributes: req.Request.UserAttributes,
	}

	if err := fn(c.Request.Context(), event); err != nil {
		h.logger.Error("Trigger processing failed",
			zap.String("trigger_source", req.TriggerSource),
			zap.String("username", req.UserName),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Trigger processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, req)
}
