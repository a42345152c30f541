package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/eltafawook-admin/api/controllers"
	"github.com/angelmondragon/eltafawook-admin/api/middleware"
	"github.com/angelmondragon/eltafawook-admin/internal/auth"
	"github.com/angelmondragon/eltafawook-admin/internal/cart"
	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/inventory"
	"github.com/angelmondragon/eltafawook-admin/internal/reservations"
	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/internal/settings"
	"github.com/angelmondragon/eltafawook-admin/internal/students"
	"github.com/angelmondragon/eltafawook-admin/internal/transfers"
	"github.com/angelmondragon/eltafawook-admin/pkg/config"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

// Deps carries everything the router wires into handlers. Gatherer and the
// readiness pingers may be nil.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Ready    map[string]controllers.Pinger

	Session      *session.Session
	Auth         auth.Service
	Catalog      catalog.Service
	Settings     settings.Service
	Students     students.Service
	Reservations reservations.Service
	Transfers    transfers.Service
	Availability *inventory.Cache
	Cart         *cart.Cart
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})

	if cfg.Metrics.Enabled && d.Gatherer != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/restore", controllers.AuthRestore(d.Auth, logg))
			r.With(middleware.Session(d.Session, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(d.Session, logg))

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", controllers.CatalogSnapshot(d.Catalog))
				r.Get("/teachers", controllers.CatalogTeachers(d.Catalog, logg))
				r.Get("/items", controllers.CatalogItems(d.Catalog, logg))
			})
			r.With(middleware.RequireAdmin(d.Session, logg)).Post("/branches/switch", controllers.BranchSwitch(d.Catalog, logg))

			r.Route("/settings/wa", func(r chi.Router) {
				r.Get("/", controllers.SettingsGet(d.Session))
				r.Put("/", controllers.SettingsSave(d.Settings, d.Session, logg))
			})

			r.Route("/students", func(r chi.Router) {
				r.Get("/search", controllers.StudentSearch(d.Students, logg))
				r.Post("/", controllers.StudentCreate(d.Students, logg))
				r.Get("/{studentId}", controllers.StudentGet(d.Students, logg))
				r.Put("/{studentId}", controllers.StudentUpdate(d.Students, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(d.Cart))
				r.Delete("/", controllers.CartClear(d.Cart))
				r.Post("/lines", controllers.CartAdd(d.Cart, d.Catalog, logg))
				r.Delete("/lines/{itemId}", controllers.CartRemove(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/immediate", controllers.OrderImmediate(d.Reservations, logg))
				r.Post("/reserve", controllers.OrderReserve(d.Reservations, logg))
				r.Post("/cart", controllers.OrderCart(d.Reservations, d.Cart, logg))
			})

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/open", controllers.ReservationsOpen(d.Reservations, logg))
				r.Get("/today", controllers.ReservationsToday(d.Reservations, logg))
				r.Post("/{reservationId}/receive", controllers.ReservationReceive(d.Reservations, logg))
				r.Post("/{reservationId}/cancel", controllers.ReservationCancel(d.Reservations, logg))
			})

			r.Get("/inventory/availability", controllers.InventoryAvailability(d.Availability, d.Catalog, logg))

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", controllers.TransferCreate(d.Transfers, d.Catalog, logg))
				r.Get("/inventory", controllers.TransferInventory(d.Transfers, logg))
			})
		})
	})

	return r
}
