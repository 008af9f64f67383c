package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/ordernum"
	"github.com/emberlane/pos-backend/internal/printer"
	pkgdb "github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type broadcaster interface {
	BroadcastOrderUpdate(ctx context.Context, event broadcast.OrderEvent)
}

type kdsSender interface {
	SendToKDS(ctx context.Context, job printer.KDSJob)
}

// Service defines the live order operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uint) (*models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.Order, error)
	RemoveItem(ctx context.Context, orderID, orderItemID uint) (*models.Order, error)
	ApplyDiscount(ctx context.Context, orderID, discountID uint) (*models.Order, error)
	RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) (*models.Order, error)
	UpdateNotes(ctx context.Context, orderID uint, notes *string) (*models.Order, error)
	SetStatus(ctx context.Context, orderID uint, target enums.OrderStatus) (*models.Order, error)
}

// CreateInput opens a new order with at least one line.
type CreateInput struct {
	StaffID   uint
	StaffName string
	Notes     *string
	Items     []LineItemInput
}

// LineItemInput selects an item, its mods, and a quantity.
type LineItemInput struct {
	ItemID   uint
	Quantity int
	ModIDs   []uint
	Notes    *string
}

// AddItemInput appends a line to an existing order.
type AddItemInput struct {
	OrderID  uint
	ItemID   uint
	Quantity int
	ModIDs   []uint
	Notes    *string
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	numbers  ordernum.Repository
	repricer *Repricer
	tx       txRunner
	hub      broadcaster
	kds      kdsSender
	loc      *time.Location
}

// NewService builds the orders service with its collaborators.
func NewService(repo Repository, catalogRepo catalog.Repository, numbers ordernum.Repository, repricer *Repricer, tx txRunner, hub broadcaster, kds kdsSender, loc *time.Location) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("order number repository required")
	}
	if repricer == nil {
		return nil, fmt.Errorf("repricer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if hub == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	if kds == nil {
		return nil, fmt.Errorf("kds sender required")
	}
	if loc == nil {
		loc = time.Local
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		numbers:  numbers,
		repricer: repricer,
		tx:       tx,
		hub:      hub,
		kds:      kds,
		loc:      loc,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.StaffID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)

		lines := make([]models.OrderItem, 0, len(input.Items))
		for _, itemInput := range input.Items {
			line, err := s.buildLine(ctx, catalogRepo, itemInput.ItemID, itemInput.Quantity, itemInput.ModIDs, itemInput.Notes)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		allocator := ordernum.NewAllocator(s.numbers.WithTx(tx))
		number, err := allocator.Allocate(ctx, s.startOfDay())
		if err != nil {
			return err
		}

		order = &models.Order{
			OrderNumber: number,
			StaffID:     input.StaffID,
			Status:      enums.OrderStatusPrep,
			Notes:       input.Notes,
			Items:       lines,
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if pkgdb.IsUniqueViolation(err, "uq_orders_active_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number taken by a concurrent creation")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if _, err := s.repricer.Reprice(ctx, tx, s.repo, order, nil); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.kds.SendToKDS(ctx, kdsJobFor(order, input.StaffName))
	s.broadcast(ctx, order, "created")
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	orders, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockMutable(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}

		line, err := s.buildLine(ctx, s.catalog.WithTx(tx), input.ItemID, input.Quantity, input.ModIDs, input.Notes)
		if err != nil {
			return err
		}
		line.OrderID = order.ID
		if err := s.repo.WithTx(tx).AddItem(ctx, &line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add order item")
		}
		order.Items = append(order.Items, line)

		_, err = s.repricer.Reprice(ctx, tx, s.repo, order, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "item_added")
	return order, nil
}

func (s *service) RemoveItem(ctx context.Context, orderID, orderItemID uint) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(order.Items) <= 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order must keep at least one item; void it instead")
		}

		if err := s.repo.WithTx(tx).RemoveItem(ctx, orderID, orderItemID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove order item")
		}
		kept := order.Items[:0]
		for _, item := range order.Items {
			if item.ID != orderItemID {
				kept = append(kept, item)
			}
		}
		order.Items = kept

		_, err = s.repricer.Reprice(ctx, tx, s.repo, order, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "item_removed")
	return order, nil
}

func (s *service) ApplyDiscount(ctx context.Context, orderID, discountID uint) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}

		for _, applied := range order.Discounts {
			if applied.DiscountID == discountID {
				return pkgerrors.New(pkgerrors.CodeConflict, "discount already applied to order")
			}
		}

		discount, err := s.catalog.WithTx(tx).FindDiscount(ctx, discountID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
		}
		if !discount.Available || discount.Group == nil || !discount.Group.Available {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount is not available")
		}

		applied := models.OrderDiscount{
			OrderID:    order.ID,
			DiscountID: discount.ID,
			Name:       discount.Name,
		}
		if err := s.repo.WithTx(tx).AddDiscount(ctx, &applied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply discount")
		}
		order.Discounts = append(order.Discounts, applied)

		_, err = s.repricer.Reprice(ctx, tx, s.repo, order, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "discount_applied")
	return order, nil
}

func (s *service) RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).RemoveDiscount(ctx, orderID, orderDiscountID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order discount not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove discount")
		}
		kept := order.Discounts[:0]
		for _, d := range order.Discounts {
			if d.ID != orderDiscountID {
				kept = append(kept, d)
			}
		}
		order.Discounts = kept

		_, err = s.repricer.Reprice(ctx, tx, s.repo, order, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "discount_removed")
	return order, nil
}

func (s *service) UpdateNotes(ctx context.Context, orderID uint, notes *string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Update(ctx, orderID, map[string]any{"notes": notes}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notes")
		}
		order.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "notes_updated")
	return order, nil
}

// SetStatus covers the staff-driven transitions: PREP→READY and PREP→VOID.
// DONE and the refund states are reachable only through payments.
func (s *service) SetStatus(ctx context.Context, orderID uint, target enums.OrderStatus) (*models.Order, error) {
	if target != enums.OrderStatusReady && target != enums.OrderStatusVoid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be ready or void")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == target {
			return nil
		}
		if err := CheckTransition(order.Status, target); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{"status": target}
		if target == enums.OrderStatusReady {
			updates["ready_at"] = now
		}
		if err := s.repo.WithTx(tx).Update(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order.Status = target
		if target == enums.OrderStatusReady {
			order.ReadyAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, order, "status_changed")
	return order, nil
}

func (s *service) buildLine(ctx context.Context, catalogRepo catalog.Repository, itemID uint, quantity int, modIDs []uint, notes *string) (models.OrderItem, error) {
	item, err := catalogRepo.FindItem(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d not found", itemID))
		}
		return models.OrderItem{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	mods, err := catalog.ValidateSelections(item, modIDs)
	if err != nil {
		return models.OrderItem{}, err
	}
	return catalog.BuildOrderLine(item, mods, quantity, notes), nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// lockMutable loads an order for update and rejects mutation outside the
// active statuses.
func (s *service) lockMutable(ctx context.Context, tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot be modified", order.Status))
	}
	return order, nil
}

func (s *service) startOfDay() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *service) broadcast(ctx context.Context, order *models.Order, action string) {
	if order == nil {
		return
	}
	s.hub.BroadcastOrderUpdate(ctx, broadcast.OrderEvent{
		OrderID: order.ID,
		Status:  order.Status,
		Action:  action,
		Order:   Project(order),
	})
}

func kdsJobFor(order *models.Order, staffName string) printer.KDSJob {
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
	return printer.KDSJob{
		OrderNumber: order.OrderNumber,
		Items:       items,
		StaffName:   staffName,
		Timestamp:   time.Now(),
	}
}
