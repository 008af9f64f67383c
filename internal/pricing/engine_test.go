package pricing

import (
	"math"
	"testing"

	"github.com/emberlane/pos-backend/pkg/enums"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func cardMethod() *enums.PaymentMethod {
	m := enums.PaymentMethodCard
	return &m
}

func cashMethod() *enums.PaymentMethod {
	m := enums.PaymentMethodCash
	return &m
}

func TestComputeWorkedExample(t *testing.T) {
	lines := []LineInput{
		{ItemPrice: 10.00, ModPrices: []float64{1.50}, Quantity: 2},
	}
	discounts := []DiscountInput{
		{Amount: 10, IsPercentage: true, Available: true, GroupAvailable: true},
	}
	fee := CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30}

	quote := Compute(lines, discounts, 0.0783, cardMethod(), fee)

	if !almostEqual(quote.Subtotal, 23.00) {
		t.Fatalf("subtotal = %v, want 23.00", quote.Subtotal)
	}
	if !almostEqual(quote.TotalDiscount, 2.30) {
		t.Fatalf("total discount = %v, want 2.30", quote.TotalDiscount)
	}
	if !almostEqual(quote.Tax, 1.80) {
		t.Fatalf("tax = %v, want 1.80", quote.Tax)
	}
	if !almostEqual(quote.CardFee, 1.13) {
		t.Fatalf("card fee = %v, want 1.13", quote.CardFee)
	}
	if !almostEqual(quote.Total, 23.63) {
		t.Fatalf("total = %v, want 23.63", quote.Total)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := []LineInput{
		{ItemPrice: 4.25, ModPrices: []float64{0.75, 0.50}, Quantity: 3},
		{ItemPrice: 12.99, Quantity: 1},
		{ItemPrice: 0.99, ModPrices: []float64{0.33}, Quantity: 7},
	}
	discounts := []DiscountInput{
		{Amount: 15, IsPercentage: true, Available: true, GroupAvailable: true},
		{Amount: 2.50, IsPercentage: false, Available: true, GroupAvailable: true},
	}
	fee := CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30}

	first := Compute(lines, discounts, 0.08, cardMethod(), fee)
	for i := 0; i < 100; i++ {
		again := Compute(lines, discounts, 0.08, cardMethod(), fee)
		if !quotesEqual(again, first) {
			t.Fatalf("recompute %d drifted: %+v vs %+v", i, again, first)
		}
	}
}

func quotesEqual(a, b Quote) bool {
	if !almostEqual(a.Subtotal, b.Subtotal) ||
		!almostEqual(a.TotalDiscount, b.TotalDiscount) ||
		!almostEqual(a.Tax, b.Tax) ||
		!almostEqual(a.CardFee, b.CardFee) ||
		!almostEqual(a.Total, b.Total) {
		return false
	}
	if len(a.DiscountAmounts) != len(b.DiscountAmounts) {
		return false
	}
	for i := range a.DiscountAmounts {
		if !almostEqual(a.DiscountAmounts[i], b.DiscountAmounts[i]) {
			return false
		}
	}
	return true
}

func TestUnavailableDiscountResolvesToZero(t *testing.T) {
	cases := []DiscountInput{
		{Amount: 10, IsPercentage: true, Available: false, GroupAvailable: true},
		{Amount: 10, IsPercentage: true, Available: true, GroupAvailable: false},
		{Amount: 5.00, IsPercentage: false, Available: false, GroupAvailable: false},
	}
	for i, d := range cases {
		if got := ResolveDiscount(50.00, d); got != 0 {
			t.Fatalf("case %d: resolved %v, want 0", i, got)
		}
	}
}

func TestFlatDiscountUsesAbsoluteValue(t *testing.T) {
	d := DiscountInput{Amount: -3.25, IsPercentage: false, Available: true, GroupAvailable: true}
	if got := ResolveDiscount(20.00, d); !almostEqual(got, 3.25) {
		t.Fatalf("resolved %v, want 3.25", got)
	}
}

func TestPercentageDiscountRoundsPerDiscount(t *testing.T) {
	d := DiscountInput{Amount: 10, IsPercentage: true, Available: true, GroupAvailable: true}
	// 10% of 10.05 = 1.005, rounds to 1.01
	if got := ResolveDiscount(10.05, d); !almostEqual(got, 1.01) {
		t.Fatalf("resolved %v, want 1.01", got)
	}
}

func TestNoCardFeeForCash(t *testing.T) {
	lines := []LineInput{{ItemPrice: 20.00, Quantity: 1}}
	fee := CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30}

	quote := Compute(lines, nil, 0.08, cashMethod(), fee)
	if quote.CardFee != 0 {
		t.Fatalf("card fee = %v, want 0 for cash", quote.CardFee)
	}

	quote = Compute(lines, nil, 0.08, nil, fee)
	if quote.CardFee != 0 {
		t.Fatalf("card fee = %v, want 0 with no payment method", quote.CardFee)
	}
}

func TestCardFeeMinimumFloor(t *testing.T) {
	lines := []LineInput{{ItemPrice: 2.00, Quantity: 1}}
	fee := CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30}

	// 5% of a tiny base is under the minimum, so the minimum applies.
	quote := Compute(lines, nil, 0.0, cardMethod(), fee)
	if !almostEqual(quote.CardFee, 0.30) {
		t.Fatalf("card fee = %v, want 0.30", quote.CardFee)
	}
	if !almostEqual(quote.Total, 2.30) {
		t.Fatalf("total = %v, want 2.30", quote.Total)
	}
}

func TestCardFeeDisabledBySettings(t *testing.T) {
	lines := []LineInput{{ItemPrice: 100.00, Quantity: 1}}
	fee := CardFeeInput{Available: false, PercentageAmount: 0.05, MinFee: 0.30}

	quote := Compute(lines, nil, 0.0, cardMethod(), fee)
	if quote.CardFee != 0 {
		t.Fatalf("card fee = %v, want 0 when settings disabled", quote.CardFee)
	}
}

func TestLineTotalRoundsPerLine(t *testing.T) {
	// (3.333 + 1.111) × 3 = 13.332, rounds to 13.33
	got := LineTotal(LineInput{ItemPrice: 3.333, ModPrices: []float64{1.111}, Quantity: 3})
	if !almostEqual(got, 13.33) {
		t.Fatalf("line total = %v, want 13.33", got)
	}
}

func TestLineTotalClampsQuantity(t *testing.T) {
	got := LineTotal(LineInput{ItemPrice: 5.00, Quantity: 0})
	if !almostEqual(got, 5.00) {
		t.Fatalf("line total = %v, want 5.00 for zero quantity", got)
	}
}

func TestTotalNeverIncludesTipInFeeBase(t *testing.T) {
	// Tip is added after the quote; Compute has no tip input, so equal
	// inputs with and without an external tip produce identical fees.
	lines := []LineInput{{ItemPrice: 40.00, Quantity: 1}}
	fee := CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30}

	quote := Compute(lines, nil, 0.08, cardMethod(), fee)
	base := 40.00 - 0 + quote.Tax
	want := math.Round(base*0.05*100) / 100
	if !almostEqual(quote.CardFee, want) {
		t.Fatalf("card fee = %v, want %v", quote.CardFee, want)
	}
}
