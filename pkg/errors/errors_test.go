package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStatuses(t *testing.T) {
	statuses := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeForbidden:         http.StatusForbidden,
		CodeNotFound:          http.StatusNotFound,
		CodeConflict:          http.StatusConflict,
		CodeStateConflict:     http.StatusUnprocessableEntity,
		CodeIdempotency:       http.StatusConflict,
		CodeRateLimit:         http.StatusTooManyRequests,
		CodeInternal:          http.StatusInternalServerError,
		CodeDependency:        http.StatusServiceUnavailable,
		CodeEmptyOrder:        http.StatusBadRequest,
		CodeOutOfStock:        http.StatusBadRequest,
		CodeInsufficientStock: http.StatusBadRequest,
		CodeInvalidSignature:  http.StatusBadRequest,
		CodeUpstream:          http.StatusBadGateway,
		CodePayloadTooLarge:   http.StatusRequestEntityTooLarge,
	}
	for code, status := range statuses {
		meta := MetadataFor(code)
		assert.Equal(t, status, meta.HTTPStatus, code)
		assert.NotEmpty(t, meta.PublicMessage, code)
	}

	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestServerSideCodesHideTheirMessage(t *testing.T) {
	for _, code := range []Code{CodeInternal, CodeDependency, CodeUpstream} {
		assert.False(t, MetadataFor(code).ExposeMessage, code)
	}
	// stock shortfalls carry the offending product ids
	for _, code := range []Code{CodeValidation, CodeOutOfStock, CodeInsufficientStock, CodeStateConflict} {
		assert.True(t, MetadataFor(code).DetailsAllowed, code)
	}
	assert.False(t, MetadataFor(CodeUnauthorized).DetailsAllowed)
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "load cart").WithDetails(map[string]any{"user_id": 7})

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "load cart", err.Message())
	assert.Equal(t, map[string]any{"user_id": 7}, err.Details())
	assert.Equal(t, "DEPENDENCY_ERROR: load cart: connection refused", err.Error())

	assert.Nil(t, New(CodeValidation, "missing name").Details())
	assert.Equal(t, "NOT_FOUND: product 12 not found", Newf(CodeNotFound, "product %d not found", 12).Error())
}

func TestIsAndAsSeeThroughWrapping(t *testing.T) {
	outer := fmt.Errorf("create order: %w", New(CodeInsufficientStock, "only 1 left"))

	assert.True(t, Is(outer, CodeInsufficientStock))
	assert.False(t, Is(outer, CodeNotFound))
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, "only 1 left", typed.Message())
	assert.Nil(t, As(nil))
}
