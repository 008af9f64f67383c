package orders

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/pricing"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// FeeSource yields the current card surcharge settings.
type FeeSource interface {
	CardFee(ctx context.Context) (pricing.CardFeeInput, error)
}

// Repricer recomputes an order's money fields from its frozen lines and the
// live discount definitions. Payments reuse it with an explicit method so
// the card fee lands before the charge amount is fixed.
type Repricer struct {
	catalog catalog.Repository
	fees    FeeSource
	taxRate float64
}

// NewRepricer builds a repricer.
func NewRepricer(catalogRepo catalog.Repository, fees FeeSource, taxRate float64) (*Repricer, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee source required")
	}
	return &Repricer{catalog: catalogRepo, fees: fees, taxRate: taxRate}, nil
}

// Reprice derives the quote for the order as it stands and persists the new
// totals plus any re-resolved discount amounts. The order struct is updated
// in place. Must run inside the caller's transaction.
func (r *Repricer) Reprice(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, method *enums.PaymentMethod) (pricing.Quote, error) {
	lines := make([]pricing.LineInput, 0, len(order.Items))
	for _, item := range order.Items {
		modPrices := make([]float64, 0, len(item.Mods))
		for _, mod := range item.Mods {
			modPrices = append(modPrices, mod.ModPrice)
		}
		lines = append(lines, pricing.LineInput{
			ItemPrice: item.ItemPrice,
			ModPrices: modPrices,
			Quantity:  item.Quantity,
		})
	}

	catalogRepo := r.catalog.WithTx(tx)
	discounts := make([]pricing.DiscountInput, 0, len(order.Discounts))
	for _, applied := range order.Discounts {
		input, err := r.resolveDiscountInput(ctx, catalogRepo, applied.DiscountID)
		if err != nil {
			return pricing.Quote{}, err
		}
		discounts = append(discounts, input)
	}

	fee, err := r.fees.CardFee(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}

	quote := pricing.Compute(lines, discounts, r.taxRate, method, fee)

	repoTx := repo.WithTx(tx)
	for i := range order.Discounts {
		if order.Discounts[i].AmountApplied == quote.DiscountAmounts[i] {
			continue
		}
		if err := repoTx.UpdateDiscountAmount(ctx, order.Discounts[i].ID, quote.DiscountAmounts[i]); err != nil {
			return pricing.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount amount")
		}
		order.Discounts[i].AmountApplied = quote.DiscountAmounts[i]
	}

	updates := map[string]any{
		"subtotal": quote.Subtotal,
		"tax":      quote.Tax,
		"card_fee": quote.CardFee,
		"total":    quote.Total,
	}
	if err := repoTx.Update(ctx, order.ID, updates); err != nil {
		return pricing.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}

	order.Subtotal = quote.Subtotal
	order.Tax = quote.Tax
	order.CardFee = quote.CardFee
	order.Total = quote.Total
	return quote, nil
}

// A deleted or unavailable discount definition resolves to zero rather than
// failing the reprice.
func (r *Repricer) resolveDiscountInput(ctx context.Context, catalogRepo catalog.Repository, discountID uint) (pricing.DiscountInput, error) {
	discount, err := catalogRepo.FindDiscount(ctx, discountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pricing.DiscountInput{}, nil
		}
		return pricing.DiscountInput{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	groupAvailable := discount.Group != nil && discount.Group.Available
	return pricing.DiscountInput{
		Amount:         discount.Amount,
		IsPercentage:   discount.IsPercentage,
		Available:      discount.Available,
		GroupAvailable: groupAvailable,
	}, nil
}
