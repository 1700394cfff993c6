package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/pkg/response"
)

// RegistrationStore is the slice of the registrations repository the payment
// flow needs.
type RegistrationStore interface {
	FindByTracking(ctx context.Context, trackingNumber string) (uuid.UUID, string, string, int64, lifecycle.State, error)
	ApplyGatewayResult(ctx context.Context, kind string, id uuid.UUID, success bool) (bool, error)
	RetryPayment(ctx context.Context, kind string, id uuid.UUID) (bool, error)
}

// Handler serves the gateway payment endpoints.
type Handler struct {
	client *PaystackClient
	repo   *Repository
	regs   RegistrationStore
	logger *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(client *PaystackClient, repo *Repository, regs RegistrationStore, logger *zap.Logger) *Handler {
	return &Handler{client: client, repo: repo, regs: regs, logger: logger}
}

// GatewayReference builds the reference for a gateway attempt. The timestamp
// lets a registrant retry after a failed attempt with a fresh reference.
func GatewayReference(trackingNumber string) string {
	return fmt.Sprintf("chaf_%s_%d", strings.ToLower(trackingNumber), time.Now().Unix())
}

type initializeRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Email          string `json:"email"`
}

// Initialize starts a gateway checkout for a pending registration. When the
// gateway is not configured the caller is told to use bank transfer instead.
func (h *Handler) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if !h.client.Enabled() {
		response.OK(c, gin.H{
			"gateway_enabled": false,
			"payment_method":  models.PaymentMethodBankTransfer,
			"message":         "online payment unavailable, pay by bank transfer and attest",
		})
		return
	}

	tracking := strings.ToUpper(strings.TrimSpace(req.TrackingNumber))
	id, kind, email, amount, state, err := h.regs.FindByTracking(c.Request.Context(), tracking)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("initialize lookup", zap.Error(err))
		response.Internal(c, "payment initialization failed")
		return
	}
	if state.PaymentStatus == lifecycle.StatusPaid {
		response.Conflict(c, "already_paid", "registration is already paid")
		return
	}
	if state.PaymentStatus != lifecycle.StatusPending {
		response.Conflict(c, "not_payable", "registration is "+state.PaymentStatus)
		return
	}
	if req.Email != "" {
		email = req.Email
	}
	if email == "" {
		response.BadRequest(c, "an email address is required for online payment")
		return
	}

	reference := GatewayReference(tracking)
	result, err := h.client.Initialize(c.Request.Context(), InitializeRequest{
		Email:      email,
		AmountKobo: amount * 100,
		Reference:  reference,
	})
	if errors.Is(err, ErrGatewayTimeout) {
		response.GatewayTimeout(c, "payment gateway timed out, try again")
		return
	}
	if err != nil {
		h.logger.Error("gateway initialize", zap.Error(err))
		response.ServiceUnavailable(c, "payment gateway unavailable")
		return
	}

	if err := h.repo.CreatePending(c.Request.Context(), &models.PaymentRecord{
		RegistrationID:   id,
		RegistrationKind: kind,
		Amount:           amount,
		PaymentMethod:    models.PaymentMethodGateway,
		PaymentGateway:   models.PaymentGatewayPaystack,
		PaymentReference: reference,
	}); err != nil {
		h.logger.Error("record pending payment", zap.Error(err))
		response.Internal(c, "payment initialization failed")
		return
	}

	h.logger.Info("gateway payment initialized",
		zap.String("tracking_number", tracking),
		zap.String("reference", reference))
	response.OK(c, gin.H{
		"gateway_enabled":   true,
		"authorization_url": result.AuthorizationURL,
		"access_code":       result.AccessCode,
		"reference":         result.Reference,
	})
}

// Verify asks the gateway for the outcome of a reference and applies it.
// Safe to call repeatedly: a paid registration stays paid.
func (h *Handler) Verify(c *gin.Context) {
	reference := c.Param("reference")

	rec, err := h.repo.GetByReference(c.Request.Context(), reference)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "payment reference not found")
		return
	}
	if err != nil {
		h.logger.Error("verify lookup", zap.Error(err))
		response.Internal(c, "payment verification failed")
		return
	}
	if rec.PaymentGateway == models.PaymentGatewayManual {
		response.Conflict(c, "manual_payment", "bank transfer payments are settled by admin verification")
		return
	}

	result, err := h.client.Verify(c.Request.Context(), reference)
	if errors.Is(err, ErrGatewayTimeout) {
		response.GatewayTimeout(c, "payment gateway timed out, try again")
		return
	}
	if errors.Is(err, ErrGatewayNotConfigured) {
		response.ServiceUnavailable(c, "payment gateway not configured")
		return
	}
	if err != nil {
		h.logger.Error("gateway verify", zap.Error(err))
		response.ServiceUnavailable(c, "payment gateway unavailable")
		return
	}

	if err := h.applyResult(c.Request.Context(), rec, result); err != nil {
		h.logger.Error("apply gateway result", zap.Error(err))
		response.Internal(c, "payment verification failed")
		return
	}

	status := models.PaymentRecordFailed
	if result.Success() {
		status = models.PaymentRecordPaid
	}
	response.OK(c, gin.H{
		"reference":      reference,
		"payment_status": status,
	})
}

// applyResult persists a gateway verdict: record first, then the
// registration transition. Both writes are idempotent, so a crash between
// them heals on the next verify or webhook delivery.
func (h *Handler) applyResult(ctx context.Context, rec *models.PaymentRecord, result *VerifyResult) error {
	if rec.PaymentGateway == models.PaymentGatewayManual {
		return ErrManualRecord
	}
	status := models.PaymentRecordFailed
	if result.Success() {
		status = models.PaymentRecordPaid
	}
	if err := h.repo.UpdateResult(ctx, rec.PaymentReference, status, result.TransactionID, result.Raw); err != nil {
		return err
	}
	changed, err := h.regs.ApplyGatewayResult(ctx, rec.RegistrationKind, rec.RegistrationID, result.Success())
	if err != nil {
		return err
	}
	if changed {
		h.logger.Info("gateway result applied",
			zap.String("reference", rec.PaymentReference),
			zap.String("status", status))
	}
	return nil
}

type retryRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// Retry returns a failed registration to pending so another payment attempt
// can start.
func (h *Handler) Retry(c *gin.Context) {
	var req retryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	tracking := strings.ToUpper(strings.TrimSpace(req.TrackingNumber))

	id, kind, _, _, state, err := h.regs.FindByTracking(c.Request.Context(), tracking)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("retry lookup", zap.Error(err))
		response.Internal(c, "retry failed")
		return
	}
	if _, _, tErr := lifecycle.Retry(state); tErr != nil {
		response.Conflict(c, "not_retryable", "registration is "+state.PaymentStatus+", only failed payments can be retried")
		return
	}

	if _, err := h.regs.RetryPayment(c.Request.Context(), kind, id); err != nil {
		h.logger.Error("retry update", zap.Error(err))
		response.Internal(c, "retry failed")
		return
	}
	response.OK(c, gin.H{
		"tracking_number": tracking,
		"payment_status":  lifecycle.StatusPending,
	})
}
