package cart

import (
	"net/http"

	"github.com/kaokai/furniture-backend/api/middleware"
	"github.com/kaokai/furniture-backend/api/responses"
	"github.com/kaokai/furniture-backend/api/validators"
	cartsvc "github.com/kaokai/furniture-backend/internal/cart"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

// cartAction mutates or reads the caller's cart and returns the lines the
// response should show.
type cartAction func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error)

// serveCart resolves the caller and renders whatever cart action leaves
// behind. Every cart route answers with the full cart view.
func serveCart(svc cartsvc.Service, logg *logger.Logger, action cartAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID := middleware.UserIDFromContext(ctx)
		if userID <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		lines, err := action(r, svc, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(lines))
	}
}

// CartFetch returns the caller's cart priced at current product prices.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serveCart(svc, logg, func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error) {
		return svc.Get(r.Context(), userID)
	})
}

// CartAddItem adds quantity units of a product, merging with an existing line.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serveCart(svc, logg, func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, payload.ProductID, payload.quantity())
	})
}

// CartUpdateQuantity sets a line's quantity. Zero or less removes the line.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serveCart(svc, logg, func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error) {
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			return nil, err
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), userID, productID, *payload.Quantity)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serveCart(svc, logg, func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error) {
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, productID)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return serveCart(svc, logg, func(r *http.Request, svc cartsvc.Service, userID int64) ([]cartsvc.CartLine, error) {
		return nil, svc.Clear(r.Context(), userID)
	})
}
