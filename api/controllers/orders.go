package controllers

import (
	"net/http"
	"strings"

	"github.com/emberlane/pos-backend/api/middleware"
	"github.com/emberlane/pos-backend/api/responses"
	"github.com/emberlane/pos-backend/api/validators"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type orderLineRequest struct {
	ItemID   uint    `json:"item_id" validate:"required"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	ModIDs   []uint  `json:"mod_ids"`
	Notes    *string `json:"notes"`
}

type createOrderRequest struct {
	Items []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes *string            `json:"notes"`
}

type notesRequest struct {
	Notes *string `json:"notes"`
}

type applyDiscountRequest struct {
	DiscountID uint `json:"discount_id" validate:"required"`
}

// CreateOrder opens a new order for the authenticated staff member.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateInput{
			StaffID:   middleware.StaffIDFromContext(r.Context()),
			StaffName: middleware.StaffNameFromContext(r.Context()),
			Notes:     req.Notes,
		}
		for _, line := range req.Items {
			input.Items = append(input.Items, orders.LineItemInput{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				ModIDs:   line.ModIDs,
				Notes:    line.Notes,
			})
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.Project(order))
	}
}

// ListOrders returns orders filtered by status and day.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := orders.ListFilters{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Date = date

		list, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projections := make([]orders.OrderProjection, 0, len(list))
		for i := range list {
			projections = append(projections, orders.Project(&list[i]))
		}
		responses.WriteSuccess(w, projections)
	}
}

// GetOrder returns one order with its lines and discounts.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// AddOrderItem appends a line to an active order.
func AddOrderItem(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AddItem(r.Context(), orders.AddItemInput{
			OrderID:  orderID,
			ItemID:   req.ItemID,
			Quantity: req.Quantity,
			ModIDs:   req.ModIDs,
			Notes:    req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// RemoveOrderItem deletes a line from an active order.
func RemoveOrderItem(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseURLUint(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RemoveItem(r.Context(), orderID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// ApplyOrderDiscount attaches a discount to an active order.
func ApplyOrderDiscount(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ApplyDiscount(r.Context(), orderID, req.DiscountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// RemoveOrderDiscount detaches an applied discount.
func RemoveOrderDiscount(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discountID, err := validators.ParseURLUint(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RemoveDiscount(r.Context(), orderID, discountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// UpdateOrderNotes replaces the order-level notes.
func UpdateOrderNotes(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req notesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateNotes(r.Context(), orderID, req.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}

// MarkOrderReady moves a prep order to ready.
func MarkOrderReady(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return setStatusHandler(svc, logg, enums.OrderStatusReady)
}

// VoidOrder cancels a prep order.
func VoidOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return setStatusHandler(svc, logg, enums.OrderStatusVoid)
}

func setStatusHandler(svc orders.Service, logg *logger.Logger, target enums.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUint(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetStatus(r.Context(), orderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.Project(order))
	}
}
