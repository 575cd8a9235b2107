package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/api/controllers"
	"github.com/kaokai/furniture-backend/internal/auth"
	"github.com/kaokai/furniture-backend/internal/cart"
	"github.com/kaokai/furniture-backend/internal/users"
	pkgAuth "github.com/kaokai/furniture-backend/pkg/auth"
	"github.com/kaokai/furniture-backend/pkg/auth/session"
	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type stubSessions struct{}

func (stubSessions) Verify(context.Context, string, int64) error {
	return nil
}

type stubAuthService struct {
	logins int
}

func (s *stubAuthService) Register(context.Context, auth.RegisterRequest) (*auth.TokenResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.TokenResponse, error) {
	s.logins++
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (s *stubAuthService) Me(context.Context, int64) (*users.UserDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubAuthService) Logout(context.Context, string) error { return nil }

func (s *stubAuthService) ForgotPassword(context.Context, auth.ForgotPasswordRequest) error {
	return nil
}

func (s *stubAuthService) ResetPassword(context.Context, auth.ResetPasswordRequest) error {
	return nil
}

type stubPromotions struct{}

func (stubPromotions) ListActive(context.Context) ([]models.Promotion, error) {
	return []models.Promotion{{ID: 1, Title: "Back to office"}}, nil
}

type stubCart struct {
	adds int
}

func (s *stubCart) Get(context.Context, int64) ([]cart.CartLine, error) {
	return []cart.CartLine{{ID: 1, ProductID: 2, Quantity: 1, LineTotal: decimal.NewFromInt(990)}}, nil
}

func (s *stubCart) AddItem(context.Context, int64, int64, int) ([]cart.CartLine, error) {
	s.adds++
	return nil, nil
}

func (s *stubCart) UpdateQuantity(context.Context, int64, int64, int) ([]cart.CartLine, error) {
	return nil, nil
}

func (s *stubCart) RemoveItem(context.Context, int64, int64) ([]cart.CartLine, error) {
	return nil, nil
}

func (s *stubCart) Clear(context.Context, int64) error { return nil }

// memoryStore satisfies both the idempotency and rate limit stores.
type memoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "fz:idempotency:" + scope + ":" + id
}

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[scope]++
	return m.counters[scope] <= limit, m.counters[scope], nil
}

type fixture struct {
	handler  http.Handler
	cfg      *config.Config
	registry *prometheus.Registry
	auth     *stubAuthService
	cart     *stubCart
}

func newFixture(t *testing.T, pingers map[string]controllers.Pinger) *fixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", PublicOrigin: "http://localhost:3000"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "furniture-test", ExpirationMinutes: 30},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    2,
			LoginEmailLimit: 2,
		},
		Idempotency: config.IdempotencyConfig{RequestTTL: time.Hour},
	}
	f := &fixture{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		auth:     &stubAuthService{},
		cart:     &stubCart{},
	}
	f.handler = NewRouter(cfg, nil, Dependencies{
		Sessions: stubSessions{},
		Store:    newMemoryStore(),
		Pingers:  pingers,
		Registry: f.registry,
	}, Services{
		Auth:       f.auth,
		Promotions: stubPromotions{},
		Cart:       f.cart,
	})
	return f
}

func (f *fixture) token(t *testing.T, userID int64, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "buyer@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, map[string]controllers.Pinger{"db": stubPinger{}})

	rec := f.do(http.MethodGet, "/api/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Furniture-Env"))

	rec = f.do(http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	f := newFixture(t, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("connection refused")}})

	rec := f.do(http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"DEPENDENCY_ERROR"`)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"NOT_FOUND"`)
}

func TestPublicRouteNeedsNoToken(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/promotions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Back to office")
}

func TestCartRequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/cart", "", f.token(t, 3, enums.UserRoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"itemCount":1`)
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/admin/users", "", f.token(t, 3, enums.UserRoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"email":"buyer@example.com","password":"wrong-password"}`

	for range 2 {
		rec := f.do(http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, f.auth.logins)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodGet, "/api/promotions", "", "")

	count, err := testutil.GatherAndCount(f.registry, "furniture_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/promotions"`)
}
