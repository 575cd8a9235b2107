package checkout

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kaokai/furniture-backend/api/middleware"
	"github.com/kaokai/furniture-backend/api/responses"
	"github.com/kaokai/furniture-backend/api/validators"
	"github.com/kaokai/furniture-backend/internal/payments"
	"github.com/kaokai/furniture-backend/pkg/enums"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

type createSessionRequest struct {
	DeliveryMethod  string  `json:"deliveryMethod" validate:"omitempty,oneof=pickup delivery"`
	DeliveryDetails *string `json:"deliveryDetails" validate:"omitempty,max=500"`
	SuccessURL      string  `json:"successUrl" validate:"omitempty,url"`
	CancelURL       string  `json:"cancelUrl" validate:"omitempty,url"`
}

// CreateSession prices the caller's cart and opens a hosted checkout session.
func CreateSession(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), userID, payments.CheckoutInput{
			DeliveryMethod:  enums.DeliveryMethod(payload.DeliveryMethod),
			DeliveryDetails: validators.OptionalString(payload.DeliveryDetails),
			SuccessURL:      payload.SuccessURL,
			CancelURL:       payload.CancelURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "session_id", result.ID), "checkout.session_created")
		}
		responses.WriteSuccess(w, result)
	}
}

// SessionReceipt returns the receipt for one of the caller's sessions.
func SessionReceipt(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, sessionID, err := sessionRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.GetCheckoutSession(r.Context(), userID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

// CreateOrderFromSession converts a paid session into its order. Repeated
// calls return the same order.
func CreateOrderFromSession(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, sessionID, err := sessionRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrderFromSession(r.Context(), userID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// PaymentStatus accepts either a session id or a payment intent id.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := sessionRequest(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.PaymentStatus(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func sessionRequest(r *http.Request, svc payments.Service) (int64, string, error) {
	if svc == nil {
		return 0, "", pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable")
	}
	userID, err := userIDFromContext(r)
	if err != nil {
		return 0, "", err
	}
	id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if id == "" {
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return userID, id, nil
}

func userIDFromContext(r *http.Request) (int64, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
