package controllers

import (
	"net/http"

	"github.com/emberlane/pos-backend/api/middleware"
	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/api/validators"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/payments"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type payRequest struct {
	Method   string   `json:"method" validate:"required"`
	Tendered *float64 `json:"tendered"`
	Tip      float64  `json:"tip" validate:"gte=0"`
	SourceID string   `json:"source_id"`
}

type refundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason"`
}

// PayOrder settles a ready order with cash or card.
func PayOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req payRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Pay(r.Context(), payments.PayInput{
			OrderID:  orderID,
			Method:   method,
			Tendered: req.Tendered,
			Tip:      req.Tip,
			SourceID: req.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// RefundOrder returns money on a settled order.
func RefundOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Refund(r.Context(), payments.RefundInput{
			OrderID: orderID,
			Amount:  req.Amount,
			Reason:  req.Reason,
			IsAdmin: middleware.IsAdminFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// PaymentGatewayStatus proxies the gateway's view of an order's payment.
func PaymentGatewayStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GatewayStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}
