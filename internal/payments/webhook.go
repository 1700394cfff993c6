package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/pkg/response"
)

// VerifyWebhookSignature checks the x-paystack-signature header: HMAC-SHA512
// of the raw body keyed with the secret key.
func VerifyWebhookSignature(secretKey string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		ID        int64  `json:"id"`
	} `json:"data"`
}

// Webhook receives Paystack event deliveries. Unsigned or malformed requests
// are rejected; redeliveries of a processed charge are acknowledged as
// no-ops.
func (h *Handler) Webhook(c *gin.Context) {
	// With no secret key there is no gateway sending events, and the empty
	// HMAC key would be computable by anyone. Refuse outright.
	if !h.client.Enabled() {
		h.logger.Warn("webhook delivery while gateway disabled")
		response.ServiceUnavailable(c, "payment gateway not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}
	signature := c.GetHeader("x-paystack-signature")
	if signature == "" || !VerifyWebhookSignature(h.client.secretKey, body, signature) {
		h.logger.Warn("webhook signature mismatch")
		response.Unauthorized(c, "invalid signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(c, "malformed event")
		return
	}

	if event.Event != "charge.success" && event.Event != "charge.failed" {
		// Acknowledge everything else so Paystack stops retrying.
		c.Status(http.StatusOK)
		return
	}

	rec, err := h.repo.GetByReference(c.Request.Context(), event.Data.Reference)
	if errors.Is(err, lifecycle.ErrNotFound) {
		h.logger.Warn("webhook for unknown reference",
			zap.String("reference", event.Data.Reference))
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		h.logger.Error("webhook lookup", zap.Error(err))
		response.Internal(c, "webhook processing failed")
		return
	}
	if rec.PaymentGateway == models.PaymentGatewayManual {
		h.logger.Warn("webhook for manual payment record",
			zap.String("reference", event.Data.Reference))
		response.BadRequest(c, "not a gateway payment")
		return
	}

	result := &VerifyResult{
		Status:        event.Data.Status,
		Reference:     event.Data.Reference,
		AmountKobo:    event.Data.Amount,
		TransactionID: transactionID(event.Data.ID),
		Raw:           json.RawMessage(body),
	}
	if event.Event == "charge.success" {
		result.Status = "success"
	}
	if err := h.applyResult(c.Request.Context(), rec, result); err != nil {
		h.logger.Error("webhook apply", zap.Error(err))
		response.Internal(c, "webhook processing failed")
		return
	}
	c.Status(http.StatusOK)
}

func transactionID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
