package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chaf-events/backend/config"
)

func testClient(baseURL string) *PaystackClient {
	return NewPaystackClient(config.PaystackConfig{
		SecretKey:  "sk_test_abc",
		BaseURL:    baseURL,
		TimeoutSec: 2,
	})
}

func TestPaystackInitialize(t *testing.T) {
	t.Run("successful initialization", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/transaction/initialize" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
				t.Errorf("auth header = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{
				"authorization_url":"https://checkout.paystack.com/abc123",
				"access_code":"abc123",
				"reference":"chaf_chaf-aaaa2222_1700000000"}}`))
		}))
		defer srv.Close()

		client := testClient(srv.URL)
		result, err := client.Initialize(context.Background(), InitializeRequest{
			Email:      "school@example.com",
			AmountKobo: 10000000,
			Reference:  "chaf_chaf-aaaa2222_1700000000",
		})
		if err != nil {
			t.Fatalf("initialize: %v", err)
		}
		if result.AuthorizationURL != "https://checkout.paystack.com/abc123" {
			t.Errorf("authorization url = %q", result.AuthorizationURL)
		}
	})

	t.Run("gateway declines", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":false,"message":"Invalid amount"}`))
		}))
		defer srv.Close()

		_, err := testClient(srv.URL).Initialize(context.Background(), InitializeRequest{
			Email: "x@example.com", AmountKobo: 0, Reference: "r",
		})
		if err == nil || !strings.Contains(err.Error(), "Invalid amount") {
			t.Errorf("err = %v, want gateway message surfaced", err)
		}
	})

	t.Run("disabled without secret key", func(t *testing.T) {
		client := NewPaystackClient(config.PaystackConfig{BaseURL: "http://unused", TimeoutSec: 1})
		if client.Enabled() {
			t.Error("client should be disabled")
		}
		_, err := client.Initialize(context.Background(), InitializeRequest{})
		if !errors.Is(err, ErrGatewayNotConfigured) {
			t.Errorf("err = %v, want ErrGatewayNotConfigured", err)
		}
	})

	t.Run("timeout maps to ErrGatewayTimeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewPaystackClient(config.PaystackConfig{
			SecretKey: "sk_test_abc", BaseURL: srv.URL, TimeoutSec: 1,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.Initialize(ctx, InitializeRequest{Email: "x@example.com", Reference: "r"})
		if !errors.Is(err, ErrGatewayTimeout) {
			t.Errorf("err = %v, want ErrGatewayTimeout", err)
		}
	})
}

func TestPaystackVerify(t *testing.T) {
	t.Run("successful charge", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/transaction/verify/chaf_test_1" {
				t.Errorf("path = %s", r.URL.Path)
			}
			w.Write([]byte(`{"status":true,"message":"Verification successful","data":{
				"status":"success","reference":"chaf_test_1","amount":10000000,"id":4099260516}}`))
		}))
		defer srv.Close()

		result, err := testClient(srv.URL).Verify(context.Background(), "chaf_test_1")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !result.Success() {
			t.Error("expected success")
		}
		if result.AmountKobo != 10000000 {
			t.Errorf("amount = %d", result.AmountKobo)
		}
		if result.TransactionID != "4099260516" {
			t.Errorf("transaction id = %q", result.TransactionID)
		}
		if len(result.Raw) == 0 {
			t.Error("raw response not captured")
		}
	})

	t.Run("abandoned charge is not success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":true,"message":"Verification successful","data":{
				"status":"abandoned","reference":"chaf_test_2","amount":10000000,"id":1}}`))
		}))
		defer srv.Close()

		result, err := testClient(srv.URL).Verify(context.Background(), "chaf_test_2")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if result.Success() {
			t.Error("abandoned charge must not count as success")
		}
	})
}

func TestGatewayReference(t *testing.T) {
	ref := GatewayReference("CHAF-ABCD2345")
	if !strings.HasPrefix(ref, "chaf_chaf-abcd2345_") {
		t.Errorf("reference = %q", ref)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "sk_test_abc"
	body := []byte(`{"event":"charge.success","data":{"reference":"chaf_test_1"}}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(secret, body, good) {
		t.Error("valid signature rejected")
	}
	if VerifyWebhookSignature(secret, body, "deadbeef") {
		t.Error("invalid signature accepted")
	}
	if VerifyWebhookSignature(secret, append(body, ' '), good) {
		t.Error("tampered body accepted")
	}
	if VerifyWebhookSignature("other_secret", body, good) {
		t.Error("wrong secret accepted")
	}
}
