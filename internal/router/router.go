package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/archiver/internal/config"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
	"github.com/kiwari-pos/archiver/internal/handler"
	mw "github.com/kiwari-pos/archiver/internal/middleware"
	"github.com/kiwari-pos/archiver/internal/service"
	"github.com/kiwari-pos/archiver/internal/ws"
	"golang.org/x/time/rate"
)

var adminRoles = []string{enum.UserRoleAdmin, enum.UserRoleManager}

// New creates a Chi router with all application routes wired up.
// The archive function route carries its own fixed CORS headers; every other
// route goes through go-chi/cors with the configured admin origins.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, archive handler.ArchiveInvoker) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Callable archive function
	perMin := cfg.ArchiveRatePerMin
	if perMin <= 0 {
		perMin = 6
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perMin)/60), perMin)
	archiveHandler := handler.NewArchiveHandler(archive)
	r.Route("/functions/v1/archive-orders", func(r chi.Router) {
		r.Use(mw.FunctionHeaders)
		r.Use(mw.RateLimit(limiter))
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(adminRoles...))
		archiveHandler.RegisterRoutes(r)
	})

	// Admin back office
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))

		// WebSocket route (handles auth internally via query param)
		r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(hub, cfg.JWTSecret, ws.TopicNotifications, adminRoles, w, r)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireRole(adminRoles...))

			newSettingsWriter := func(db database.DBTX) service.SettingsWriter {
				return database.New(db)
			}
			settingsService := service.NewSettingsService(pool, queries, newSettingsWriter)
			settingsHandler := handler.NewSettingsHandler(settingsService)
			r.Route("/archive/settings", settingsHandler.RegisterRoutes)

			historicalHandler := handler.NewHistoricalHandler(queries)
			r.Route("/historical-orders", historicalHandler.RegisterRoutes)

			notificationHandler := handler.NewNotificationHandler(queries)
			r.Route("/notifications", notificationHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
