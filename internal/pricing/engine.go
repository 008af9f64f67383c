package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/emberlane/pos-backend/pkg/enums"
)

// LineInput is one order line as seen by the engine: the frozen item price,
// the frozen prices of its selected mods, and a quantity.
type LineInput struct {
	ItemPrice float64
	ModPrices []float64
	Quantity  int
}

// DiscountInput carries what the engine needs to resolve a discount to a
// currency amount. Availability of the discount and its group both gate it.
type DiscountInput struct {
	Amount         float64
	IsPercentage   bool
	Available      bool
	GroupAvailable bool
}

// CardFeeInput mirrors the admin card surcharge settings.
type CardFeeInput struct {
	Available        bool
	PercentageAmount float64
	MinFee           float64
}

// Quote is the full derived money state of an order. Recomputing from the
// same inputs always yields the same quote.
type Quote struct {
	Subtotal        float64
	DiscountAmounts []float64
	TotalDiscount   float64
	Tax             float64
	CardFee         float64
	Total           float64
}

// Compute derives every money field from scratch. Rounding to two decimals
// happens at each step, not once at the end, so stored intermediates always
// match what a re-run would produce.
func Compute(lines []LineInput, discounts []DiscountInput, taxRate float64, method *enums.PaymentMethod, fee CardFeeInput) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(lineTotal(line))
	}

	amounts := make([]float64, len(discounts))
	totalDiscount := decimal.Zero
	for i, d := range discounts {
		amount := resolveDiscount(subtotal, d)
		amounts[i] = amount.InexactFloat64()
		totalDiscount = totalDiscount.Add(amount)
	}

	// Tax applies to the pre-discount subtotal.
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Round(2)

	base := subtotal.Sub(totalDiscount).Add(tax)
	cardFee := cardFeeFor(base, method, fee)

	total := base.Add(cardFee).Round(2)

	return Quote{
		Subtotal:        subtotal.InexactFloat64(),
		DiscountAmounts: amounts,
		TotalDiscount:   totalDiscount.InexactFloat64(),
		Tax:             tax.InexactFloat64(),
		CardFee:         cardFee.InexactFloat64(),
		Total:           total.InexactFloat64(),
	}
}

// LineTotal resolves a single order line to currency: (item + mods) × qty,
// rounded to two decimals.
func LineTotal(line LineInput) float64 {
	return lineTotal(line).InexactFloat64()
}

// ResolveDiscount returns the currency amount a discount takes off the given
// subtotal. Unavailable discounts (or groups) resolve to zero.
func ResolveDiscount(subtotal float64, d DiscountInput) float64 {
	return resolveDiscount(decimal.NewFromFloat(subtotal), d).InexactFloat64()
}

func lineTotal(line LineInput) decimal.Decimal {
	qty := line.Quantity
	if qty < 1 {
		qty = 1
	}
	unit := decimal.NewFromFloat(line.ItemPrice)
	for _, mod := range line.ModPrices {
		unit = unit.Add(decimal.NewFromFloat(mod))
	}
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func resolveDiscount(subtotal decimal.Decimal, d DiscountInput) decimal.Decimal {
	if !d.Available || !d.GroupAvailable {
		return decimal.Zero
	}
	amount := decimal.NewFromFloat(d.Amount)
	if d.IsPercentage {
		return subtotal.Mul(amount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return amount.Abs().Round(2)
}

func cardFeeFor(base decimal.Decimal, method *enums.PaymentMethod, fee CardFeeInput) decimal.Decimal {
	if method == nil || *method != enums.PaymentMethodCard {
		return decimal.Zero
	}
	if !fee.Available {
		return decimal.Zero
	}
	pct := base.Mul(decimal.NewFromFloat(fee.PercentageAmount))
	min := decimal.NewFromFloat(fee.MinFee)
	if pct.LessThan(min) {
		pct = min
	}
	return pct.Round(2)
}
