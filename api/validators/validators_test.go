package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

type addItemBody struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
	Method    string `json:"deliveryMethod" validate:"omitempty,oneof=pickup delivery"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":3,"quantity":2}`))
	var body addItemBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, int64(3), body.ProductID)
	assert.Equal(t, 2, body.Quantity)
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	cases := map[string]string{
		"empty":   ``,
		"unknown": `{"productId":3,"price":1}`,
		"invalid": `{"productId":0}`,
		"oneof":   `{"productId":1,"deliveryMethod":"drone"}`,
		"garbage": `{`,
		"twice":   `{"productId":1} {"productId":2}`,
		"type":    `{"productId":"three"}`,
		"array":   `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
			var body addItemBody
			err := DecodeJSONBody(req, &body)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyNamesOffendingField(t *testing.T) {
	cases := map[string]struct {
		raw, field, message string
	}{
		"unknown": {`{"productId":3,"price":1}`, "price", "is not allowed"},
		"type":    {`{"productId":"three"}`, "productId", "must be a int64"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.raw))
			var body addItemBody
			typed := pkgerrors.As(DecodeJSONBody(req, &body))
			require.NotNil(t, typed)
			assert.Equal(t, map[string]string{tc.field: tc.message}, typed.Details())
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	err := ValidateStruct(&addItemBody{Quantity: -1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "productId")
	assert.Contains(t, details, "quantity")
}

func TestParseIDParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	id, err := ParseIDParam(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := ParseIDParam(withParam(bad), "id")
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), bad)
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=500", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 100, params.Limit)

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?page=x", nil))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "โต๊ะ", SanitizeString("  โต๊ะทำงาน ", 4))
	blank := "   "
	assert.Nil(t, OptionalString(&blank))
	value := " 0812345678 "
	assert.Equal(t, "0812345678", *OptionalString(&value))
}

func TestOptionalQueryID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?userId=7", nil)
	id, err := OptionalQueryID(req, "userId")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	id, err = OptionalQueryID(httptest.NewRequest(http.MethodGet, "/", nil), "userId")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = OptionalQueryID(httptest.NewRequest(http.MethodGet, "/?userId=-2", nil), "userId")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestOptionalQueryAmount(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?minPrice=1500.50", nil)
	amount, err := OptionalQueryAmount(req, "minPrice")
	require.NoError(t, err)
	require.NotNil(t, amount)
	assert.Equal(t, "1500.5", amount.String())

	_, err = OptionalQueryAmount(httptest.NewRequest(http.MethodGet, "/?minPrice=abc", nil), "minPrice")
	require.Error(t, err)

	_, err = OptionalQueryAmount(httptest.NewRequest(http.MethodGet, "/?maxPrice=-1", nil), "maxPrice")
	require.Error(t, err)
}
