package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/pricing"
	"github.com/emberlane/pos-backend/internal/printer"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/enums"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/square"
)

type stubRepo struct {
	order   *models.Order
	updates map[string]any
}

func (s *stubRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubRepo) FindByID(ctx context.Context, orderID uint) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubRepo) FindByIDForUpdate(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.FindByID(ctx, orderID)
}

func (s *stubRepo) List(ctx context.Context, filters orders.ListFilters) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubRepo) Update(ctx context.Context, orderID uint, updates map[string]any) error {
	if s.updates == nil {
		s.updates = map[string]any{}
	}
	for k, v := range updates {
		s.updates[k] = v
	}
	return nil
}

func (s *stubRepo) AddItem(ctx context.Context, item *models.OrderItem) error {
	panic("not implemented")
}

func (s *stubRepo) RemoveItem(ctx context.Context, orderID, orderItemID uint) error {
	panic("not implemented")
}

func (s *stubRepo) AddDiscount(ctx context.Context, discount *models.OrderDiscount) error {
	panic("not implemented")
}

func (s *stubRepo) RemoveDiscount(ctx context.Context, orderID, orderDiscountID uint) error {
	panic("not implemented")
}

func (s *stubRepo) UpdateDiscountAmount(ctx context.Context, orderDiscountID uint, amount float64) error {
	return nil
}

type stubCatalogRepo struct{}

func (stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return stubCatalogRepo{} }
func (stubCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	panic("not implemented")
}
func (stubCatalogRepo) FindItem(ctx context.Context, itemID uint) (*models.Item, error) {
	panic("not implemented")
}
func (stubCatalogRepo) ListDiscountGroups(ctx context.Context) ([]models.DiscountGroup, error) {
	panic("not implemented")
}
func (stubCatalogRepo) FindDiscount(ctx context.Context, discountID uint) (*models.Discount, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubFeeSource struct {
	fee pricing.CardFeeInput
}

func (s *stubFeeSource) CardFee(ctx context.Context) (pricing.CardFeeInput, error) {
	return s.fee, nil
}

type chargeCall struct {
	params square.ChargeParams
}

type stubGateway struct {
	charges   []chargeCall
	refunds   []square.RefundParams
	chargeErr error
	refundErr error
	status    string
}

func strPtr(v string) *string { return &v }

func (s *stubGateway) Charge(ctx context.Context, params square.ChargeParams) (*sq.Payment, error) {
	if s.chargeErr != nil {
		return nil, s.chargeErr
	}
	s.charges = append(s.charges, chargeCall{params: params})
	return &sq.Payment{ID: strPtr("pay_123"), Status: strPtr("COMPLETED")}, nil
}

func (s *stubGateway) Refund(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error) {
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.refunds = append(s.refunds, params)
	return &sq.PaymentRefund{ID: "ref_456", Status: strPtr("COMPLETED")}, nil
}

func (s *stubGateway) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	status := s.status
	if status == "" {
		status = "COMPLETED"
	}
	return &sq.Payment{ID: &paymentID, Status: &status}, nil
}

type stubGate struct {
	acquires int
	releases int
	err      error
}

func (s *stubGate) Acquire(ctx context.Context) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.acquires++
	return func() { s.releases++ }, nil
}

func (s *stubGate) Online() bool { return s.acquires > s.releases }

type stubIdemStore struct {
	values map[string]string
}

func (s *stubIdemStore) Get(ctx context.Context, key string) (string, error) {
	return s.values[key], nil
}

func (s *stubIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.values == nil {
		s.values = map[string]string{}
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubIdemStore) IdempotencyKey(scope, id string) string {
	return "pos:idempotency:" + scope + ":" + id
}

func (s *stubIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

type stubHub struct {
	events []broadcast.PaymentEvent
}

func (s *stubHub) BroadcastPaymentUpdate(ctx context.Context, event broadcast.PaymentEvent) {
	s.events = append(s.events, event)
}

type stubReceipts struct {
	jobs []printer.ReceiptJob
}

func (s *stubReceipts) PrintReceipt(ctx context.Context, job printer.ReceiptJob) {
	s.jobs = append(s.jobs, job)
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc      Service
	repo     *stubRepo
	gateway  *stubGateway
	gate     *stubGate
	hub      *stubHub
	receipts *stubReceipts
	idem     *stubIdemStore
}

func newFixture(t *testing.T, feeAvailable bool) *fixture {
	t.Helper()
	repricer, err := orders.NewRepricer(stubCatalogRepo{}, &stubFeeSource{
		fee: pricing.CardFeeInput{Available: feeAvailable, PercentageAmount: 0.05, MinFee: 0.30},
	}, 0.0)
	if err != nil {
		t.Fatalf("repricer construction failed: %v", err)
	}

	f := &fixture{
		repo:     &stubRepo{},
		gateway:  &stubGateway{},
		gate:     &stubGate{},
		hub:      &stubHub{},
		receipts: &stubReceipts{},
		idem:     &stubIdemStore{},
	}
	f.svc, err = NewService(f.repo, repricer, stubTxRunner{}, f.gateway, f.gate, f.idem, f.hub, f.receipts, config.PaymentConfig{
		GatewayTimeout: time.Second,
		IdempotencyTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}
	return f
}

func readyOrder() *models.Order {
	return &models.Order{
		ID:          1,
		OrderNumber: 12,
		Status:      enums.OrderStatusReady,
		Items: []models.OrderItem{
			{ID: 2, Name: "Burger", Quantity: 2, ItemPrice: 10.00, TotalPrice: 20.00},
		},
	}
}

func TestPayCashComputesChange(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()
	tendered := 25.00

	order, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:  1,
		Method:   enums.PaymentMethodCash,
		Tendered: &tendered,
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if order.Status != enums.OrderStatusDone {
		t.Fatalf("status = %s, want done", order.Status)
	}
	if order.Total != 20.00 {
		t.Fatalf("total = %v, want 20.00", order.Total)
	}
	if order.CashChange == nil || *order.CashChange != 5.00 {
		t.Fatalf("change = %v, want 5.00", order.CashChange)
	}
	if order.DoneAt == nil {
		t.Fatal("done_at not stamped")
	}
	if len(f.receipts.jobs) != 1 {
		t.Fatalf("receipts = %d, want 1", len(f.receipts.jobs))
	}
	if len(f.hub.events) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(f.hub.events))
	}
	if f.gate.acquires != 0 {
		t.Fatal("cash payment must not touch the network gate")
	}
}

func TestPayCashInsufficientTendered(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()
	tendered := 10.00

	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:  1,
		Method:   enums.PaymentMethodCash,
		Tendered: &tendered,
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.receipts.jobs) != 0 || len(f.hub.events) != 0 {
		t.Fatal("failed payment must not print or broadcast")
	}
}

func TestPayCardChargesGatewayWithFee(t *testing.T) {
	f := newFixture(t, true)
	f.repo.order = readyOrder()

	order, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:  1,
		Method:   enums.PaymentMethodCard,
		SourceID: "cnon_abc",
		Tip:      3.00,
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	// fee = max(20.00×0.05, 0.30) = 1.00; total = 21.00 + 3.00 tip
	if order.CardFee != 1.00 {
		t.Fatalf("card fee = %v, want 1.00", order.CardFee)
	}
	if order.Total != 24.00 {
		t.Fatalf("total = %v, want 24.00", order.Total)
	}
	if order.GatewayPaymentID == nil || *order.GatewayPaymentID != "pay_123" {
		t.Fatalf("gateway payment id = %v", order.GatewayPaymentID)
	}
	if len(f.gateway.charges) != 1 {
		t.Fatalf("charges = %d, want 1", len(f.gateway.charges))
	}
	if got := f.gateway.charges[0].params.AmountCents; got != 2400 {
		t.Fatalf("charged %d cents, want 2400", got)
	}
	if f.gate.acquires != 1 || f.gate.releases != 1 {
		t.Fatalf("gate acquires=%d releases=%d, want 1/1", f.gate.acquires, f.gate.releases)
	}
}

func TestPayCardGatewayFailureReleasesGate(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()
	f.gateway.chargeErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway timeout")

	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID:  1,
		Method:   enums.PaymentMethodCard,
		SourceID: "cnon_abc",
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.gate.releases != 1 {
		t.Fatalf("gate releases = %d, want 1 on failure path", f.gate.releases)
	}
	if len(f.receipts.jobs) != 0 || len(f.hub.events) != 0 {
		t.Fatal("failed charge must not print or broadcast")
	}
}

func TestPayCardIdempotencyKeyPinnedPerOrder(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()

	if _, err := f.svc.Pay(context.Background(), PayInput{
		OrderID: 1, Method: enums.PaymentMethodCard, SourceID: "cnon_abc",
	}); err != nil {
		t.Fatalf("first pay failed: %v", err)
	}
	firstKey := f.gateway.charges[0].params.IdempotencyKey

	// Simulate a retry of the same order: reset status, pay again.
	f.repo.order.Status = enums.OrderStatusReady
	if _, err := f.svc.Pay(context.Background(), PayInput{
		OrderID: 1, Method: enums.PaymentMethodCard, SourceID: "cnon_abc",
	}); err != nil {
		t.Fatalf("second pay failed: %v", err)
	}
	if got := f.gateway.charges[1].params.IdempotencyKey; got != firstKey {
		t.Fatalf("idempotency key changed across retries: %q vs %q", firstKey, got)
	}
}

func TestPayRejectsPrepOrder(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()
	f.repo.order.Status = enums.OrderStatusPrep
	tendered := 25.00

	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID: 1, Method: enums.PaymentMethodCash, Tendered: &tendered,
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRefundRequiresAdmin(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 5, IsAdmin: false})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundPartialThenFull(t *testing.T) {
	f := newFixture(t, false)
	method := enums.PaymentMethodCash
	f.repo.order = &models.Order{
		ID: 1, Status: enums.OrderStatusDone, Total: 20.00, PaymentMethod: &method,
	}

	order, err := f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 8.00, IsAdmin: true})
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if order.Status != enums.OrderStatusPartiallyRefunded {
		t.Fatalf("status = %s, want partially_refunded", order.Status)
	}
	if order.RefundAmount != 8.00 {
		t.Fatalf("refund amount = %v, want 8.00", order.RefundAmount)
	}

	order, err = f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 12.00, IsAdmin: true})
	if err != nil {
		t.Fatalf("completing refund failed: %v", err)
	}
	if order.Status != enums.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", order.Status)
	}
	if order.RefundAmount != 20.00 {
		t.Fatalf("refund amount = %v, want 20.00", order.RefundAmount)
	}
}

func TestRefundCannotExceedRemaining(t *testing.T) {
	f := newFixture(t, false)
	method := enums.PaymentMethodCash
	f.repo.order = &models.Order{
		ID: 1, Status: enums.OrderStatusDone, Total: 20.00, RefundAmount: 15.00, PaymentMethod: &method,
	}

	_, err := f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 10.00, IsAdmin: true})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRefundCardGoesThroughGateway(t *testing.T) {
	f := newFixture(t, false)
	method := enums.PaymentMethodCard
	paymentID := "pay_123"
	f.repo.order = &models.Order{
		ID: 1, Status: enums.OrderStatusDone, Total: 30.00,
		PaymentMethod: &method, GatewayPaymentID: &paymentID,
	}

	order, err := f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 30.00, Reason: "cold food", IsAdmin: true})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if order.Status != enums.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", order.Status)
	}
	if order.GatewayRefundID == nil || *order.GatewayRefundID != "ref_456" {
		t.Fatalf("gateway refund id = %v", order.GatewayRefundID)
	}
	if len(f.gateway.refunds) != 1 || f.gateway.refunds[0].AmountCents != 3000 {
		t.Fatalf("gateway refunds = %+v", f.gateway.refunds)
	}
	if f.gateway.refunds[0].PaymentID != "pay_123" {
		t.Fatalf("refunded wrong payment: %s", f.gateway.refunds[0].PaymentID)
	}
}

func TestRefundRejectedBeforeSettlement(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()

	_, err := f.svc.Refund(context.Background(), RefundInput{OrderID: 1, Amount: 5.00, IsAdmin: true})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGatewayStatusRequiresCardPayment(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()

	_, err := f.svc.GatewayStatus(context.Background(), 1)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGatewayStatusProxiesGateway(t *testing.T) {
	f := newFixture(t, false)
	paymentID := "pay_123"
	f.repo.order = readyOrder()
	f.repo.order.GatewayPaymentID = &paymentID
	f.gateway.status = "APPROVED"

	status, err := f.svc.GatewayStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status != "APPROVED" {
		t.Fatalf("status = %q, want APPROVED", status)
	}
}

func TestGateAcquireFailureSurfacesAsError(t *testing.T) {
	f := newFixture(t, false)
	f.repo.order = readyOrder()
	f.gate.err = errors.New("firewall toggle failed")

	_, err := f.svc.Pay(context.Background(), PayInput{
		OrderID: 1, Method: enums.PaymentMethodCard, SourceID: "cnon_abc",
	})
	if err == nil {
		t.Fatal("expected error when gate cannot open")
	}
}
