package catalog

import (
	"strings"
	"testing"

	"github.com/emberlane/pos-backend/pkg/db/models"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func burgerItem() *models.Item {
	return &models.Item{
		ID:        1,
		Name:      "Burger",
		Price:     8.50,
		Available: true,
		ModLists: []models.ModList{
			{
				ID:            10,
				Name:          "Cheese",
				MinSelections: 1,
				MaxSelections: intPtr(1),
				Available:     true,
				Mods: []models.Mod{
					{ID: 100, ModListID: 10, Name: "Cheddar", Price: 0.75, Available: true},
					{ID: 101, ModListID: 10, Name: "Swiss", Price: 0.75, Available: true},
					{ID: 102, ModListID: 10, Name: "Blue", Price: 1.00, Available: false},
				},
			},
			{
				ID:            11,
				Name:          "Extras",
				MinSelections: 0,
				MaxSelections: intPtr(2),
				Available:     true,
				Mods: []models.Mod{
					{ID: 110, ModListID: 11, Name: "Bacon", Price: 1.50, Available: true},
					{ID: 111, ModListID: 11, Name: "Avocado", Price: 2.00, Available: true},
					{ID: 112, ModListID: 11, Name: "Egg", Price: 1.25, Available: true},
				},
			},
		},
	}
}

func TestValidateSelectionsHappyPath(t *testing.T) {
	mods, err := ValidateSelections(burgerItem(), []uint{100, 110, 111})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mods) != 3 {
		t.Fatalf("resolved %d mods, want 3", len(mods))
	}
	if mods[0].Name != "Cheddar" || mods[1].Name != "Bacon" || mods[2].Name != "Avocado" {
		t.Fatalf("mods out of selection order: %v", mods)
	}
}

func TestValidateSelectionsMinimumNotMet(t *testing.T) {
	_, err := ValidateSelections(burgerItem(), nil)
	if err == nil {
		t.Fatal("expected error for missing required selection")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cheese") {
		t.Fatalf("error should name the list: %v", err)
	}
}

func TestValidateSelectionsMaximumExceeded(t *testing.T) {
	_, err := ValidateSelections(burgerItem(), []uint{100, 110, 111, 112})
	if err == nil {
		t.Fatal("expected error for too many extras")
	}
	if !strings.Contains(err.Error(), "Extras") {
		t.Fatalf("error should name the list: %v", err)
	}
}

func TestValidateSelectionsUnknownMod(t *testing.T) {
	_, err := ValidateSelections(burgerItem(), []uint{100, 999})
	if err == nil {
		t.Fatal("expected error for foreign mod")
	}
}

func TestValidateSelectionsUnavailableMod(t *testing.T) {
	_, err := ValidateSelections(burgerItem(), []uint{102})
	if err == nil {
		t.Fatal("expected error for unavailable mod")
	}
}

func TestValidateSelectionsDuplicateMod(t *testing.T) {
	_, err := ValidateSelections(burgerItem(), []uint{100, 100})
	if err == nil {
		t.Fatal("expected error for duplicate selection")
	}
}

func TestValidateSelectionsUnavailableItem(t *testing.T) {
	item := burgerItem()
	item.Available = false
	_, err := ValidateSelections(item, []uint{100})
	if err == nil {
		t.Fatal("expected error for unavailable item")
	}
}

func TestBuildOrderLineFreezesPrices(t *testing.T) {
	item := burgerItem()
	mods := []models.Mod{
		{ID: 100, Name: "Cheddar", Price: 0.75},
		{ID: 110, Name: "Bacon", Price: 1.50},
	}

	line := BuildOrderLine(item, mods, 2, nil)

	if line.ItemID != item.ID || line.Name != "Burger" {
		t.Fatalf("line identity wrong: %+v", line)
	}
	if line.ItemPrice != 8.50 {
		t.Fatalf("item price = %v, want 8.50", line.ItemPrice)
	}
	if line.ModsPrice != 2.25 {
		t.Fatalf("mods price = %v, want 2.25", line.ModsPrice)
	}
	// (8.50 + 2.25) × 2
	if line.TotalPrice != 21.50 {
		t.Fatalf("total price = %v, want 21.50", line.TotalPrice)
	}
	if len(line.Mods) != 2 || line.Mods[1].ModName != "Bacon" {
		t.Fatalf("frozen mods wrong: %+v", line.Mods)
	}
}

func TestBuildOrderLineDefaultsQuantity(t *testing.T) {
	line := BuildOrderLine(burgerItem(), nil, 0, nil)
	if line.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", line.Quantity)
	}
}
