package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/auth"
	"github.com/kaokai/furniture-backend/pkg/auth/session"
	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "furniture-test", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// recordingVerifier answers with err and remembers what it was asked.
type recordingVerifier struct {
	err      error
	accessID string
	userID   int64
}

func (v *recordingVerifier) Verify(_ context.Context, accessID string, userID int64) error {
	v.accessID, v.userID = accessID, userID
	return v.err
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID int64, role enums.UserRole) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Email:  "buyer@example.com",
		Role:   role,
		JTI:    accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

func serveWithAuth(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejections(t *testing.T) {
	userToken, _ := mintTestToken(t, testJWT, 3, enums.UserRoleUser)
	foreign := testJWT
	foreign.Secret = "other"
	foreignToken, _ := mintTestToken(t, foreign, 7, enums.UserRoleUser)

	cases := []struct {
		name          string
		authorization string
		verifyErr     error
		want          int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"not bearer", "Basic Zm9vOmJhcg==", nil, http.StatusUnauthorized},
		{"garbage token", "Bearer invalid", nil, http.StatusUnauthorized},
		{"other secret", "Bearer " + foreignToken, nil, http.StatusUnauthorized},
		{"revoked session", "Bearer " + userToken, session.ErrRevoked, http.StatusUnauthorized},
		{"session store down", "Bearer " + userToken, errors.New("redis down"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Auth(testJWT, &recordingVerifier{err: tc.verifyErr}, nil)(okHandler())
			assert.Equal(t, tc.want, serveWithAuth(h, tc.authorization).Code)
		})
	}
}

func TestAuthPutsIdentityOnContext(t *testing.T) {
	token, jti := mintTestToken(t, testJWT, 42, enums.UserRoleAdmin)
	verifier := &recordingVerifier{}

	var (
		user   int64
		role   enums.UserRole
		access string
	)
	h := Auth(testJWT, verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		access = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// scheme is case-insensitive
	rec := serveWithAuth(h, "bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, user)
	assert.Equal(t, enums.UserRoleAdmin, role)
	assert.Equal(t, jti, access)

	assert.Equal(t, jti, verifier.accessID)
	assert.EqualValues(t, 42, verifier.userID, "session is checked against the token's user")
}
