package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emberlane/pos-backend/api/controllers"
	"github.com/emberlane/pos-backend/api/middleware"
	"github.com/emberlane/pos-backend/internal/archive"
	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/payments"
	"github.com/emberlane/pos-backend/internal/settings"
	"github.com/emberlane/pos-backend/internal/staff"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/logger"
	"github.com/emberlane/pos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	hub *broadcast.Hub,
	staffService staff.Service,
	catalogRepo catalog.Repository,
	ordersService orders.Service,
	paymentsService payments.Service,
	settingsService settings.Service,
	archiveService archive.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.Live())
		r.Get("/ready", controllers.Ready(dbP, redisP, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.StaffLogin(staffService, logg))
		r.Get("/staff", controllers.StaffList(staffService, logg))
	})

	r.Get("/ws/{role}/{clientID}", controllers.Realtime(hub, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/menu", controllers.Menu(catalogRepo, logg))
			r.Get("/discounts", controllers.DiscountGroups(catalogRepo, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(ordersService, logg))
				r.Post("/items", controllers.AddOrderItem(ordersService, logg))
				r.Delete("/items/{itemID}", controllers.RemoveOrderItem(ordersService, logg))
				r.Post("/discounts", controllers.ApplyOrderDiscount(ordersService, logg))
				r.Delete("/discounts/{discountID}", controllers.RemoveOrderDiscount(ordersService, logg))
				r.Patch("/notes", controllers.UpdateOrderNotes(ordersService, logg))
				r.Post("/ready", controllers.MarkOrderReady(ordersService, logg))
				r.Post("/void", controllers.VoidOrder(ordersService, logg))
				r.Post("/pay", controllers.PayOrder(paymentsService, logg))
				r.Post("/refund", controllers.RefundOrder(paymentsService, logg))
				r.Get("/payment-status", controllers.PaymentGatewayStatus(paymentsService, logg))
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", controllers.ListHistory(archiveService, logg))
			r.Get("/{orderID}", controllers.HistoryByOrderID(archiveService, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/card-fee", controllers.CardFeeSettings(settingsService, logg))
			r.Get("/system", controllers.SystemSettings(settingsService, logg))
			r.With(middleware.RequireAdmin(logg)).Patch("/card-fee", controllers.UpdateCardFeeSettings(settingsService, logg))
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/cleanup", controllers.RunCleanup(archiveService, logg))
			r.Post("/reset-numbers", controllers.ResetOrderNumbers(archiveService, logg))
		})
	})

	return r
}
