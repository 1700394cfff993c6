package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/config"
	"github.com/chaf-events/backend/internal/models"
)

func signBody(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// With no secret key configured there is no gateway, and a signature over the
// empty key is computable by anyone who knows a tracking number. The handler
// must refuse such deliveries before touching any payment record.
func TestWebhookRejectedWhenGatewayDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client := NewPaystackClient(config.PaystackConfig{TimeoutSec: 1})
	h := NewHandler(client, nil, nil, zap.NewNop())
	router := gin.New()
	router.POST("/webhooks/paystack", h.Webhook)

	body := []byte(`{"event":"charge.success","data":{"reference":"manual_CHAF-AAAA2222","status":"success","amount":300000,"id":1}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("", body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestApplyResultRefusesManualRecord(t *testing.T) {
	client := NewPaystackClient(config.PaystackConfig{SecretKey: "sk_test_abc", TimeoutSec: 1})
	h := NewHandler(client, nil, nil, zap.NewNop())

	err := h.applyResult(context.Background(), &models.PaymentRecord{
		PaymentReference: "manual_CHAF-AAAA2222",
		PaymentGateway:   models.PaymentGatewayManual,
	}, &VerifyResult{Status: "success", Reference: "manual_CHAF-AAAA2222"})
	if !errors.Is(err, ErrManualRecord) {
		t.Errorf("err = %v, want ErrManualRecord", err)
	}
}
