package responses

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

// Body is the {"data": ...} wrapper of every 2xx response.
type Body struct {
	Data any `json:"data"`
}

// Problem is the error object clients branch on by Code.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type problemBody struct {
	Error Problem `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Body{Data: data})
}

// ProblemFor maps err onto the status and the client-safe error object.
// Untyped errors are internal; their text never leaves the process.
func ProblemFor(err error) (int, Problem) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	p := Problem{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.ExposeMessage && typed.Message() != "" {
		p.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		p.Details = typed.Details()
	}
	return meta.HTTPStatus, p
}

// WriteError logs err with its diagnosis and renders the error envelope.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = pkgerrors.New(pkgerrors.CodeInternal, "unknown error")
	}
	status, problem := ProblemFor(err)

	if logg != nil {
		fields := pkgerrors.Diagnose(err).LogFields()
		fields["http_status"] = status
		logCtx := logg.WithFields(ctx, fields)
		switch {
		case status >= http.StatusInternalServerError:
			logg.Error(logCtx, "request.error", err)
		default:
			logg.Warn(logCtx, "request.rejected")
		}
	}

	writeJSON(w, status, problemBody{Error: problem})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("response.encode_failed")
	}
}
