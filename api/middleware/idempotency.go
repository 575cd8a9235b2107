package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/kaokai/furniture-backend/api/responses"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

const (
	headerIdempotencyKey     = "Idempotency-Key"
	headerReplayed           = "Idempotent-Replayed"
	headerOriginalRequestID  = "Idempotent-Original-Request-Id"
	defaultIdempotencyTTL    = 24 * time.Hour
	idempotencyReservation   = time.Minute
	maxIdempotencyKeyLength  = 255
	maxIdempotentRequestBody = 1 << 20
)

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// storedResponse is the redis value behind a key. A record without a
// status is a reservation held by the request still running.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

// Idempotency makes a keyed POST run at most once per user, method and
// path. The key is reserved before the handler runs, so a concurrent
// duplicate gets a 409 instead of a second execution. Completed
// responses below 500 are replayed for ttl; on a 5xx the reservation is
// dropped so the caller may retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLength {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentRequestBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), clientKey)
			fingerprint := fingerprintBody(body)

			reserved, err := reserve(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !reserved {
				previous, err := load(ctx, store, key)
				switch {
				case err != nil:
					responses.WriteError(ctx, logg, w, err)
				case previous == nil:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key was just released, retry"))
				case previous.Fingerprint != fingerprint:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case previous.pending():
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
				default:
					replay(w, previous)
				}
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logIdempotencyFailure(ctx, logg, "release idempotency key", err)
				}
				return
			}
			record := storedResponse{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestID:   RequestIDFromContext(ctx),
			}
			payload, _ := json.Marshal(record)
			if err := store.Set(ctx, key, string(payload), ttl); err != nil {
				logIdempotencyFailure(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func reserve(ctx context.Context, store IdempotencyStore, key, fingerprint string) (bool, error) {
	payload, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
	ok, err := store.SetNX(ctx, key, string(payload), idempotencyReservation)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

// load returns nil when the key vanished between SETNX and GET.
func load(ctx context.Context, store IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &record, nil
}

func replay(w http.ResponseWriter, record *storedResponse) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(headerReplayed, "true")
	if record.RequestID != "" {
		w.Header().Set(headerOriginalRequestID, record.RequestID)
	}
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{
		strconv.FormatInt(UserIDFromContext(r.Context()), 10),
		r.Method,
		r.URL.Path,
	}, "|")
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func logIdempotencyFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
