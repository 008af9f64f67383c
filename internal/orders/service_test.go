package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/ordernum"
	"github.com/emberlane/pos-backend/internal/pricing"
	"github.com/emberlane/pos-backend/internal/printer"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
)

type stubOrdersRepo struct {
	order        *models.Order
	created      *models.Order
	createErr    error
	nextID       uint
	orderUpdates map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	order.ID = s.nextID
	for i := range order.Items {
		s.nextID++
		order.Items[i].ID = s.nextID
	}
	s.created = order
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uint) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.FindByID(ctx, orderID)
}

func (s *stubOrdersRepo) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	if s.order == nil {
		return nil, nil
	}
	return []models.Order{*s.order}, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uint, updates map[string]any) error {
	s.orderUpdates = updates
	return nil
}

func (s *stubOrdersRepo) AddItem(ctx context.Context, item *models.OrderItem) error {
	s.nextID++
	item.ID = s.nextID
	return nil
}

func (s *stubOrdersRepo) RemoveItem(ctx context.Context, orderID, orderItemID uint) error {
	if s.order == nil {
		return gorm.ErrRecordNotFound
	}
	for _, item := range s.order.Items {
		if item.ID == orderItemID {
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) AddDiscount(ctx context.Context, discount *models.OrderDiscount) error {
	s.nextID++
	discount.ID = s.nextID
	return nil
}

func (s *stubOrdersRepo) RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) error {
	if s.order == nil {
		return gorm.ErrRecordNotFound
	}
	for _, d := range s.order.Discounts {
		if d.ID == orderDiscountID {
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) UpdateDiscountAmount(ctx context.Context, orderDiscountID uint, amount float64) error {
	return nil
}

type stubCatalogRepo struct {
	items     map[uint]*models.Item
	discounts map[uint]*models.Discount
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	panic("not implemented")
}

func (s *stubCatalogRepo) FindItem(ctx context.Context, itemID uint) (*models.Item, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (s *stubCatalogRepo) ListDiscountGroups(ctx context.Context) ([]models.DiscountGroup, error) {
	panic("not implemented")
}

func (s *stubCatalogRepo) FindDiscount(ctx context.Context, discountID uint) (*models.Discount, error) {
	d, ok := s.discounts[discountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

type stubNumbersRepo struct {
	todaysMax int
	active    map[int]bool
}

func (s *stubNumbersRepo) WithTx(tx *gorm.DB) ordernum.Repository { return s }

func (s *stubNumbersRepo) MaxNumberSince(ctx context.Context, since time.Time) (int, error) {
	return s.todaysMax, nil
}

func (s *stubNumbersRepo) ActiveNumbers(ctx context.Context) (map[int]bool, error) {
	return s.active, nil
}

type stubHub struct {
	events []broadcast.OrderEvent
}

func (s *stubHub) BroadcastOrderUpdate(ctx context.Context, event broadcast.OrderEvent) {
	s.events = append(s.events, event)
}

type stubKDS struct {
	jobs []printer.KDSJob
}

func (s *stubKDS) SendToKDS(ctx context.Context, job printer.KDSJob) {
	s.jobs = append(s.jobs, job)
}

type stubFeeSource struct {
	fee pricing.CardFeeInput
}

func (s *stubFeeSource) CardFee(ctx context.Context) (pricing.CardFeeInput, error) {
	return s.fee, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc     Service
	repo    *stubOrdersRepo
	catalog *stubCatalogRepo
	numbers *stubNumbersRepo
	hub     *stubHub
	kds     *stubKDS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalogRepo := &stubCatalogRepo{
		items: map[uint]*models.Item{
			1: {ID: 1, Name: "Burger", Price: 10.00, Available: true, ModLists: []models.ModList{
				{ID: 10, Name: "Extras", Available: true, Mods: []models.Mod{
					{ID: 100, ModListID: 10, Name: "Bacon", Price: 1.50, Available: true},
				}},
			}},
			2: {ID: 2, Name: "Fries", Price: 3.50, Available: true},
		},
		discounts: map[uint]*models.Discount{
			5: {ID: 5, Name: "10% Off", Amount: 10, IsPercentage: true, Available: true,
				Group: &models.DiscountGroup{ID: 1, Available: true}},
			6: {ID: 6, Name: "Expired", Amount: 5, IsPercentage: false, Available: false,
				Group: &models.DiscountGroup{ID: 1, Available: true}},
		},
	}
	repricer, err := NewRepricer(catalogRepo, &stubFeeSource{
		fee: pricing.CardFeeInput{Available: true, PercentageAmount: 0.05, MinFee: 0.30},
	}, 0.0)
	if err != nil {
		t.Fatalf("repricer construction failed: %v", err)
	}

	f := &fixture{
		repo:    &stubOrdersRepo{},
		catalog: catalogRepo,
		numbers: &stubNumbersRepo{},
		hub:     &stubHub{},
		kds:     &stubKDS{},
	}
	f.svc, err = NewService(f.repo, catalogRepo, f.numbers, repricer, stubTxRunner{}, f.hub, f.kds, time.UTC)
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}
	return f
}

func TestCreateOrderAllocatesNumberAndPrices(t *testing.T) {
	f := newFixture(t)
	f.numbers.todaysMax = 4

	order, err := f.svc.Create(context.Background(), CreateInput{
		StaffID:   1,
		StaffName: "Sam",
		Items: []LineItemInput{
			{ItemID: 1, Quantity: 2, ModIDs: []uint{100}},
			{ItemID: 2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.OrderNumber != 5 {
		t.Fatalf("order number = %d, want 5", order.OrderNumber)
	}
	if order.Status != enums.OrderStatusPrep {
		t.Fatalf("status = %s, want prep", order.Status)
	}
	// (10.00+1.50)×2 + 3.50
	if order.Subtotal != 26.50 {
		t.Fatalf("subtotal = %v, want 26.50", order.Subtotal)
	}
	if order.Total != 26.50 {
		t.Fatalf("total = %v, want 26.50", order.Total)
	}
	if len(f.kds.jobs) != 1 || f.kds.jobs[0].OrderNumber != 5 {
		t.Fatalf("kds jobs = %+v, want one for order 5", f.kds.jobs)
	}
	if len(f.hub.events) != 1 || f.hub.events[0].Action != "created" {
		t.Fatalf("broadcasts = %+v, want one created event", f.hub.events)
	}
}

func TestCreateOrderNumberRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New(`duplicate key value violates unique constraint "uq_orders_active_number"`)

	_, err := f.svc.Create(context.Background(), CreateInput{
		StaffID: 1,
		Items:   []LineItemInput{{ItemID: 2, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("error = %v, want %s", err, pkgerrors.CodeConflict)
	}
	if len(f.hub.events) != 0 {
		t.Fatal("failed create must not broadcast")
	}
}

func TestCreateOrderRequiresItems(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{StaffID: 1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(f.hub.events) != 0 {
		t.Fatal("failed create must not broadcast")
	}
}

func TestCreateOrderCapacityExhausted(t *testing.T) {
	f := newFixture(t)
	f.numbers.active = map[int]bool{}
	for n := ordernum.MinNumber; n <= ordernum.MaxNumber; n++ {
		f.numbers.active[n] = true
	}

	_, err := f.svc.Create(context.Background(), CreateInput{
		StaffID: 1,
		Items:   []LineItemInput{{ItemID: 2, Quantity: 1}},
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeCapacity {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestAddItemReprices(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{
		ID: 1, Status: enums.OrderStatusPrep,
		Items: []models.OrderItem{{ID: 2, ItemID: 2, Name: "Fries", Quantity: 1, ItemPrice: 3.50, TotalPrice: 3.50}},
	}
	f.repo.nextID = 2

	order, err := f.svc.AddItem(context.Background(), AddItemInput{OrderID: 1, ItemID: 2, Quantity: 2})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
	if order.Subtotal != 10.50 {
		t.Fatalf("subtotal = %v, want 10.50", order.Subtotal)
	}
	if len(f.hub.events) != 1 || f.hub.events[0].Action != "item_added" {
		t.Fatalf("broadcasts = %+v", f.hub.events)
	}
}

func TestMutationRejectedOnceTerminal(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusDone,
		Items: []models.OrderItem{{ID: 2, ItemID: 2}}}

	_, err := f.svc.AddItem(context.Background(), AddItemInput{OrderID: 1, ItemID: 2, Quantity: 1})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRemoveLastItemRejected(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusPrep,
		Items: []models.OrderItem{{ID: 2, ItemID: 2}}}

	_, err := f.svc.RemoveItem(context.Background(), 1, 2)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyDiscountResolvesAmount(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{
		ID: 1, Status: enums.OrderStatusPrep, Subtotal: 20.00,
		Items: []models.OrderItem{{ID: 2, ItemID: 1, Quantity: 2, ItemPrice: 10.00, TotalPrice: 20.00}},
	}
	f.repo.nextID = 2

	order, err := f.svc.ApplyDiscount(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("apply discount failed: %v", err)
	}
	if len(order.Discounts) != 1 {
		t.Fatalf("discounts = %d, want 1", len(order.Discounts))
	}
	// 10% of 20.00
	if order.Discounts[0].AmountApplied != 2.00 {
		t.Fatalf("amount applied = %v, want 2.00", order.Discounts[0].AmountApplied)
	}
	if order.Total != 18.00 {
		t.Fatalf("total = %v, want 18.00", order.Total)
	}
}

func TestApplyDiscountRejectsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusPrep,
		Items: []models.OrderItem{{ID: 2, ItemID: 1}}}

	_, err := f.svc.ApplyDiscount(context.Background(), 1, 6)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyDiscountRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusPrep,
		Items:     []models.OrderItem{{ID: 2, ItemID: 1}},
		Discounts: []models.OrderDiscount{{ID: 3, DiscountID: 5}}}

	_, err := f.svc.ApplyDiscount(context.Background(), 1, 5)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSetStatusReadyStampsTimestamp(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusPrep,
		Items: []models.OrderItem{{ID: 2}}}

	order, err := f.svc.SetStatus(context.Background(), 1, enums.OrderStatusReady)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if order.Status != enums.OrderStatusReady {
		t.Fatalf("status = %s, want ready", order.Status)
	}
	if order.ReadyAt == nil {
		t.Fatal("ready_at not stamped")
	}
	if len(f.hub.events) != 1 || f.hub.events[0].Action != "status_changed" {
		t.Fatalf("broadcasts = %+v", f.hub.events)
	}
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusReady}

	_, err := f.svc.SetStatus(context.Background(), 1, enums.OrderStatusVoid)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSetStatusRejectsPaymentOnlyTargets(t *testing.T) {
	f := newFixture(t)
	f.repo.order = &models.Order{ID: 1, Status: enums.OrderStatusReady}

	_, err := f.svc.SetStatus(context.Background(), 1, enums.OrderStatusDone)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionTableIsClosed(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		ok       bool
	}{
		{enums.OrderStatusPrep, enums.OrderStatusReady, true},
		{enums.OrderStatusPrep, enums.OrderStatusVoid, true},
		{enums.OrderStatusReady, enums.OrderStatusDone, true},
		{enums.OrderStatusDone, enums.OrderStatusRefunded, true},
		{enums.OrderStatusDone, enums.OrderStatusPartiallyRefunded, true},
		{enums.OrderStatusPartiallyRefunded, enums.OrderStatusRefunded, true},
		{enums.OrderStatusPrep, enums.OrderStatusDone, false},
		{enums.OrderStatusReady, enums.OrderStatusVoid, false},
		{enums.OrderStatusReady, enums.OrderStatusPrep, false},
		{enums.OrderStatusVoid, enums.OrderStatusPrep, false},
		{enums.OrderStatusDone, enums.OrderStatusReady, false},
		{enums.OrderStatusRefunded, enums.OrderStatusDone, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
