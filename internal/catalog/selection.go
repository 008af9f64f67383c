package catalog

import (
	"fmt"

	"github.com/emberlane/pos-backend/internal/pricing"
	"github.com/emberlane/pos-backend/pkg/db/models"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

// ValidateSelections checks a set of selected mod ids against an item's mod
// lists and returns the resolved mods in selection order. Every selected mod
// must belong to one of the item's lists, be available, and each list's
// min/max selection bounds must hold.
func ValidateSelections(item *models.Item, modIDs []uint) ([]models.Mod, error) {
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if !item.Available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %q is not available", item.Name))
	}

	modsByID := map[uint]models.Mod{}
	listByModID := map[uint]uint{}
	for _, list := range item.ModLists {
		for _, mod := range list.Mods {
			modsByID[mod.ID] = mod
			listByModID[mod.ID] = list.ID
		}
	}

	selectedPerList := map[uint]int{}
	seen := map[uint]bool{}
	resolved := make([]models.Mod, 0, len(modIDs))
	for _, modID := range modIDs {
		mod, ok := modsByID[modID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("mod %d does not belong to item %q", modID, item.Name))
		}
		if !mod.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("mod %q is not available", mod.Name))
		}
		if seen[modID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("mod %q selected more than once", mod.Name))
		}
		seen[modID] = true
		selectedPerList[listByModID[modID]]++
		resolved = append(resolved, mod)
	}

	for _, list := range item.ModLists {
		if !list.Available {
			continue
		}
		count := selectedPerList[list.ID]
		if count < list.MinSelections {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%q requires at least %d selection(s)", list.Name, list.MinSelections))
		}
		if list.MaxSelections != nil && count > *list.MaxSelections {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%q allows at most %d selection(s)", list.Name, *list.MaxSelections))
		}
	}

	return resolved, nil
}

// BuildOrderLine freezes an item and its resolved mods into an order line.
// Prices are copied so later menu edits never change the order.
func BuildOrderLine(item *models.Item, mods []models.Mod, quantity int, notes *string) models.OrderItem {
	if quantity < 1 {
		quantity = 1
	}

	modsPrice := 0.0
	modPrices := make([]float64, 0, len(mods))
	lineMods := make([]models.OrderItemMod, 0, len(mods))
	for _, mod := range mods {
		modsPrice += mod.Price
		modPrices = append(modPrices, mod.Price)
		lineMods = append(lineMods, models.OrderItemMod{
			ModID:    mod.ID,
			ModName:  mod.Name,
			ModPrice: mod.Price,
		})
	}

	total := pricing.LineTotal(pricing.LineInput{
		ItemPrice: item.Price,
		ModPrices: modPrices,
		Quantity:  quantity,
	})

	return models.OrderItem{
		ItemID:     item.ID,
		Name:       item.Name,
		Quantity:   quantity,
		ItemPrice:  item.Price,
		ModsPrice:  modsPrice,
		TotalPrice: total,
		Notes:      notes,
		Mods:       lineMods,
	}
}
