package payments

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/network"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/printer"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/redis"
	"github.com/emberlane/pos-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the card-processing surface the orchestrator talks to.
type Gateway interface {
	Charge(ctx context.Context, params square.ChargeParams) (*sq.Payment, error)
	Refund(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

type broadcaster interface {
	BroadcastPaymentUpdate(ctx context.Context, event broadcast.PaymentEvent)
}

type receiptPrinter interface {
	PrintReceipt(ctx context.Context, job printer.ReceiptJob)
}

// Service settles and refunds orders.
type Service interface {
	Pay(ctx context.Context, input PayInput) (*models.Order, error)
	Refund(ctx context.Context, input RefundInput) (*models.Order, error)
	GatewayStatus(ctx context.Context, orderID uint) (string, error)
}

// PayInput settles a READY order.
type PayInput struct {
	OrderID  uint
	Method   enums.PaymentMethod
	Tendered *float64
	Tip      float64
	SourceID string
}

// RefundInput returns money on a settled order. Admin only.
type RefundInput struct {
	OrderID uint
	Amount  float64
	Reason  string
	IsAdmin bool
}

type service struct {
	repo     orders.Repository
	repricer *orders.Repricer
	tx       txRunner
	gateway  Gateway
	gate     network.Gate
	idem     redis.IdempotencyStore
	hub      broadcaster
	receipts receiptPrinter
	cfg      config.PaymentConfig
}

// NewService builds the payment orchestrator.
func NewService(repo orders.Repository, repricer *orders.Repricer, tx txRunner, gateway Gateway, gate network.Gate, idem redis.IdempotencyStore, hub broadcaster, receipts receiptPrinter, cfg config.PaymentConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if repricer == nil {
		return nil, fmt.Errorf("repricer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if gate == nil {
		return nil, fmt.Errorf("network gate required")
	}
	if idem == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if hub == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	if receipts == nil {
		return nil, fmt.Errorf("receipt printer required")
	}
	return &service{
		repo:     repo,
		repricer: repricer,
		tx:       tx,
		gateway:  gateway,
		gate:     gate,
		idem:     idem,
		hub:      hub,
		receipts: receipts,
		cfg:      cfg,
	}, nil
}

func (s *service) Pay(ctx context.Context, input PayInput) (*models.Order, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash or card")
	}
	if input.Tip < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tip cannot be negative")
	}
	if input.Method == enums.PaymentMethodCard && input.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card payment requires a source id")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := orders.CheckTransition(order.Status, enums.OrderStatusDone); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusReady {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only ready orders can be paid")
		}

		method := input.Method
		quote, err := s.repricer.Reprice(ctx, tx, s.repo, order, &method)
		if err != nil {
			return err
		}

		tip := round2(input.Tip)
		total := round2(quote.Total + tip)

		updates := map[string]any{
			"payment_method": method,
			"tip":            tip,
			"total":          total,
			"status":         enums.OrderStatusDone,
		}

		switch method {
		case enums.PaymentMethodCash:
			if input.Tendered == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "cash payment requires tendered amount")
			}
			tendered := round2(*input.Tendered)
			if tendered < total {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("tendered %.2f is less than total %.2f", tendered, total))
			}
			change := round2(tendered - total)
			updates["cash_tendered"] = tendered
			updates["cash_change"] = change
			order.CashTendered = &tendered
			order.CashChange = &change

		case enums.PaymentMethodCard:
			paymentID, err := s.charge(ctx, order, total, input.SourceID)
			if err != nil {
				return err
			}
			updates["gateway_payment_id"] = paymentID
			order.GatewayPaymentID = &paymentID
		}

		now := time.Now()
		updates["done_at"] = now
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}

		order.PaymentMethod = &method
		order.Tip = tip
		order.Total = total
		order.Status = enums.OrderStatusDone
		order.DoneAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Committed: side effects are best effort from here.
	s.receipts.PrintReceipt(ctx, receiptJobFor(order))
	s.hub.BroadcastPaymentUpdate(ctx, broadcast.PaymentEvent{
		OrderID: order.ID,
		Status:  order.Status,
		Order:   orders.Project(order),
	})
	return order, nil
}

// charge runs the card payment with the network gate held and a bounded
// timeout. The idempotency key is pinned per order so a retried request
// replays the same gateway charge instead of double-billing.
func (s *service) charge(ctx context.Context, order *models.Order, total float64, sourceID string) (string, error) {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	idemKey, err := s.idempotencyKeyFor(ctx, order.ID)
	if err != nil {
		return "", err
	}

	chargeCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		chargeCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}

	payment, err := s.gateway.Charge(chargeCtx, square.ChargeParams{
		AmountCents:    toCents(total),
		Currency:       "USD",
		SourceID:       sourceID,
		IdempotencyKey: idemKey,
		ReferenceID:    strconv.FormatUint(uint64(order.ID), 10),
		Note:           fmt.Sprintf("order #%d", order.OrderNumber),
	})
	if err != nil {
		return "", err
	}
	if payment == nil || payment.GetID() == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no payment id")
	}
	return *payment.GetID(), nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Order, error) {
	if !input.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refunds require an admin")
	}
	amount := round2(input.Amount)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDone && order.Status != enums.OrderStatusPartiallyRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only settled orders can be refunded")
		}

		remaining := round2(order.Total - order.RefundAmount)
		if amount > remaining {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("refund %.2f exceeds remaining %.2f", amount, remaining))
		}

		refunded := round2(order.RefundAmount + amount)
		target := enums.OrderStatusPartiallyRefunded
		if refunded >= order.Total {
			target = enums.OrderStatusRefunded
		}
		if err := orders.CheckTransition(order.Status, target); err != nil {
			return err
		}

		updates := map[string]any{
			"status":        target,
			"refund_amount": refunded,
		}

		if order.PaymentMethod != nil && *order.PaymentMethod == enums.PaymentMethodCard {
			if order.GatewayPaymentID == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "card order has no gateway payment id")
			}
			refundID, err := s.refundCard(ctx, order, amount, input.Reason)
			if err != nil {
				return err
			}
			updates["gateway_refund_id"] = refundID
			order.GatewayRefundID = &refundID
		}

		now := time.Now()
		updates["refunded_at"] = now
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
		}

		order.Status = target
		order.RefundAmount = refunded
		order.RefundedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastPaymentUpdate(ctx, broadcast.PaymentEvent{
		OrderID: order.ID,
		Status:  order.Status,
		Order:   orders.Project(order),
	})
	return order, nil
}

func (s *service) refundCard(ctx context.Context, order *models.Order, amount float64, reason string) (string, error) {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	refundCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		refundCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}

	refund, err := s.gateway.Refund(refundCtx, square.RefundParams{
		PaymentID:      *order.GatewayPaymentID,
		AmountCents:    toCents(amount),
		Currency:       "USD",
		Reason:         reason,
		IdempotencyKey: fmt.Sprintf("refund-%d-%s", order.ID, uuid.NewString()),
	})
	if err != nil {
		return "", err
	}
	if refund == nil || refund.GetID() == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no refund id")
	}
	return refund.GetID(), nil
}

// GatewayStatus proxies the gateway's view of an order's card payment.
func (s *service) GatewayStatus(ctx context.Context, orderID uint) (string, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.GatewayPaymentID == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "order has no gateway payment")
	}

	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	payment, err := s.gateway.GetPayment(ctx, *order.GatewayPaymentID)
	if err != nil {
		return "", err
	}
	if payment == nil || payment.GetStatus() == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no status")
	}
	return *payment.GetStatus(), nil
}

func (s *service) lockOrder(ctx context.Context, repo orders.Repository, orderID uint) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) idempotencyKeyFor(ctx context.Context, orderID uint) (string, error) {
	key := s.idem.IdempotencyKey("payment", strconv.FormatUint(uint64(orderID), 10))
	candidate := uuid.NewString()
	claimed, err := s.idem.SetNX(ctx, key, candidate, s.cfg.IdempotencyTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if claimed {
		return candidate, nil
	}
	existing, err := s.idem.Get(ctx, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	}
	return existing, nil
}

func receiptJobFor(order *models.Order) printer.ReceiptJob {
	items := make([]printer.ReceiptItem, 0, len(order.Items))
	for _, item := range order.Items {
		modNames := make([]string, 0, len(item.Mods))
		for _, mod := range item.Mods {
			modNames = append(modNames, mod.ModName)
		}
		items = append(items, printer.ReceiptItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.TotalPrice,
			Mods:     modNames,
		})
	}
	return printer.ReceiptJob{
		OrderNumber:   order.OrderNumber,
		Items:         items,
		Subtotal:      order.Subtotal,
		Discount:      order.TotalDiscount(),
		Tax:           order.Tax,
		CardFee:       order.CardFee,
		Tip:           order.Tip,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Tendered:      order.CashTendered,
		Change:        order.CashChange,
		Timestamp:     time.Now(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
