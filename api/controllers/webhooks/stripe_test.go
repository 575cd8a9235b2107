package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/kaokai/furniture-backend/internal/webhooks/stripe"
)

const testSecret = "whsec_test"

func newGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute)
	require.NoError(t, err)
	return guard
}

func post(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookProcessesOnce(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil)

	rec := post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, service.calls)
	assert.Equal(t, stripe.EventTypeCheckoutSessionCompleted, service.lastType)

	rec = post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.calls)
}

func TestStripeWebhookInvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil)

	rec := post(handler, payload, "t=1,v1=invalid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"INVALID_SIGNATURE"`)
	assert.Zero(t, service.calls)

	rec = post(handler, payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.calls)
}

func TestStripeWebhookRefusesOversizedBody(t *testing.T) {
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil)

	rec := post(handler, bytes.Repeat([]byte("x"), maxWebhookBody+1), "t=1,v1=irrelevant")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"PAYLOAD_TOO_LARGE"`)
	assert.Zero(t, service.calls)
}

func TestStripeWebhookMissingSecret(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{}, newGuard(t), nil)

	rec := post(handler, payload, header)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.calls)
}

func TestStripeWebhookRetriesAfterFailure(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeStripeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil)

	rec := post(handler, payload, header)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	service.err = nil
	rec = post(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, service.calls)
}

func buildSignedEvent(t *testing.T) ([]byte, string) {
	t.Helper()
	session := &stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   150000,
		Currency:      "thb",
		Metadata: map[string]string{
			"user_id":         "5",
			"delivery_method": "pickup",
		},
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)

	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload, signatureHeader(payload, testSecret, time.Now().Unix())
}

func signatureHeader(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeStripeWebhookService struct {
	calls    int
	lastType stripe.EventType
	err      error
}

func (f *fakeStripeWebhookService) HandleEvent(_ context.Context, event *stripe.Event) error {
	f.calls++
	f.lastType = event.Type
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "fz:idempotency:" + scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
