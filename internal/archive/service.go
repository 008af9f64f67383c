package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/settings"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db/models"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// numberParkOffset moves an order number out of the allocator's [1, 99]
// range during renumbering.
const numberParkOffset = 100

// Result summarizes a cleanup run.
type Result struct {
	Archived   int `json:"archived"`
	Renumbered int `json:"renumbered"`
}

// Service snapshots finished orders into history and recycles their numbers.
type Service interface {
	ArchiveCompleted(ctx context.Context, cutoff time.Time) (int, error)
	ResetNumbers(ctx context.Context) (int, error)
	DailyCleanup(ctx context.Context) (Result, error)
	ListHistory(ctx context.Context, filters HistoryFilters) ([]models.OrderHistory, error)
	HistoryByOrderID(ctx context.Context, orderID uint) (*models.OrderHistory, error)
}

type service struct {
	repo     Repository
	settings settings.Repository
	tx       txRunner
	logger   *logger.Logger
	cfg      config.CleanupConfig
}

// NewService builds the archival service.
func NewService(repo Repository, settingsRepo settings.Repository, tx txRunner, log *logger.Logger, cfg config.CleanupConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("archive repository required")
	}
	if settingsRepo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		settings: settingsRepo,
		tx:       tx,
		logger:   log,
		cfg:      cfg,
	}, nil
}

// ArchiveCompleted moves every terminal order older than the cutoff into
// order_history and deletes the live rows.
func (s *service) ArchiveCompleted(ctx context.Context, cutoff time.Time) (int, error) {
	var archived int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		archived, err = s.archiveCompleted(ctx, s.repo.WithTx(tx), cutoff)
		return err
	})
	return archived, err
}

// ResetNumbers reassigns 1..N to the active orders by creation time.
func (s *service) ResetNumbers(ctx context.Context) (int, error) {
	var renumbered int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		renumbered, err = s.resetNumbers(ctx, s.repo.WithTx(tx))
		return err
	})
	return renumbered, err
}

// DailyCleanup archives, renumbers, and stamps the run time in one
// transaction so a crash mid-run leaves nothing half-done.
func (s *service) DailyCleanup(ctx context.Context) (Result, error) {
	var result Result
	now := time.Now()
	cutoff := now.Add(-s.maxAge())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		archived, err := s.archiveCompleted(ctx, repo, cutoff)
		if err != nil {
			return err
		}
		renumbered, err := s.resetNumbers(ctx, repo)
		if err != nil {
			return err
		}
		if err := s.settings.WithTx(tx).SetLastCleanupAt(ctx, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp cleanup time")
		}

		result = Result{Archived: archived, Renumbered: renumbered}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"archived":   result.Archived,
		"renumbered": result.Renumbered,
		"cutoff":     cutoff.Format(time.RFC3339),
	})
	s.logger.Info(ctx, "daily cleanup completed")
	return result, nil
}

func (s *service) archiveCompleted(ctx context.Context, repo Repository, cutoff time.Time) (int, error) {
	candidates, err := repo.ListArchivable(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list archivable orders")
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	staffIDs := make([]uint, 0, len(candidates))
	seen := map[uint]bool{}
	for _, order := range candidates {
		if !seen[order.StaffID] {
			seen[order.StaffID] = true
			staffIDs = append(staffIDs, order.StaffID)
		}
	}
	names, err := repo.StaffNames(ctx, staffIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve staff names")
	}

	for i := range candidates {
		order := &candidates[i]
		row, err := snapshot(order, names[order.StaffID])
		if err != nil {
			return 0, err
		}
		if err := repo.InsertHistory(ctx, row); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert history row")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete archived order")
		}
	}
	return len(candidates), nil
}

// resetNumbers reassigns the active set 1..N by creation time. Assignments
// run in two phases so the partial unique index on active order numbers never
// sees a transient collision: a wrapped set like [98, 1, 2] would otherwise
// reject assigning 1 while the second order still holds it.
func (s *service) resetNumbers(ctx context.Context, repo Repository) (int, error) {
	active, err := repo.ListActiveForRenumber(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}

	type move struct {
		orderID uint
		target  int
	}
	moves := make([]move, 0, len(active))
	for i := range active {
		target := i + 1
		if active[i].OrderNumber == target {
			continue
		}
		moves = append(moves, move{orderID: active[i].ID, target: target})
	}
	if len(moves) == 0 {
		return 0, nil
	}

	// Park moving orders above the valid range first, then assign targets.
	for _, m := range moves {
		if err := repo.UpdateOrderNumber(ctx, m.orderID, m.target+numberParkOffset); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park order number")
		}
	}
	for _, m := range moves {
		if err := repo.UpdateOrderNumber(ctx, m.orderID, m.target); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renumber order")
		}
	}
	return len(moves), nil
}

func (s *service) ListHistory(ctx context.Context, filters HistoryFilters) ([]models.OrderHistory, error) {
	rows, err := s.repo.ListHistory(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list history")
	}
	return rows, nil
}

func (s *service) HistoryByOrderID(ctx context.Context, orderID uint) (*models.OrderHistory, error) {
	row, err := s.repo.FindHistoryByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "archived order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load history")
	}
	return row, nil
}

func (s *service) maxAge() time.Duration {
	if s.cfg.MaxAge > 0 {
		return s.cfg.MaxAge
	}
	return 24 * time.Hour
}

// snapshot freezes an order into its immutable history projection.
func snapshot(order *models.Order, staffName string) (*models.OrderHistory, error) {
	projection := orders.Project(order)

	itemsData, err := json.Marshal(projection.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal items snapshot")
	}
	discountsData, err := json.Marshal(projection.Discounts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal discounts snapshot")
	}

	return &models.OrderHistory{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		StaffID:          order.StaffID,
		StaffName:        staffName,
		Status:           order.Status,
		Subtotal:         order.Subtotal,
		Tax:              order.Tax,
		CardFee:          order.CardFee,
		Tip:              order.Tip,
		Total:            order.Total,
		PaymentMethod:    order.PaymentMethod,
		Notes:            order.Notes,
		GatewayPaymentID: order.GatewayPaymentID,
		GatewayRefundID:  order.GatewayRefundID,
		CreatedAt:        order.CreatedAt,
		ReadyAt:          order.ReadyAt,
		DoneAt:           order.DoneAt,
		RefundedAt:       order.RefundedAt,
		ItemsData:        itemsData,
		DiscountsData:    discountsData,
	}, nil
}
