package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/pagination"
)

// ParseIDParam reads a positive integer id from the named chi path parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid path parameter").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// ParsePagination reads page/limit query values.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	params, err := pagination.Parse(q.Get("page"), q.Get("limit"))
	if err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return params, nil
}
