// Package app wires repositories, services and handlers into one router.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reppyroute/internal/config"
	"reppyroute/internal/idempotency"
	"reppyroute/internal/middleware"
	"reppyroute/internal/modules/admin"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/modules/garage"
	"reppyroute/internal/modules/lead"
	"reppyroute/internal/modules/messaging"
	"reppyroute/internal/modules/notification"
	"reppyroute/internal/modules/profile"
	"reppyroute/internal/modules/request"
	"reppyroute/internal/modules/review"
	jwtsvc "reppyroute/internal/pkg/jwt"
	"reppyroute/internal/realtime"
	"reppyroute/internal/repository"
	"reppyroute/internal/storage"
)

// Deps are the long-lived resources built once at start-up.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Store  storage.Store
	Hub    *realtime.Hub
	Guard  idempotency.Guard
	Logger *slog.Logger
}

type App struct {
	deps Deps
	jwt  *jwtsvc.Service

	Profiles *repository.ProfileRepository

	Auth          *auth.Service
	Profile       *profile.Service
	Requests      *request.Service
	Messaging     *messaging.Service
	Notifications *notification.Service
	Reviews       *review.Service
	Garage        *garage.Service
	Leads         *lead.Service
	Admin         *admin.Service
	Cleanup       *notification.CleanupService
}

func New(d Deps) *App {
	cfg := d.Config
	db := d.DB

	profiles := repository.NewProfileRepository(db)
	mechanics := repository.NewMechanicRepository(db)
	vehicles := repository.NewVehicleRepository(db)
	documents := repository.NewDocumentRepository(db)
	requests := repository.NewRequestRepository(db)
	quotes := repository.NewQuoteRepository(db)
	threads := repository.NewThreadRepository(db)
	messages := repository.NewMessageRepository(db)
	notifications := repository.NewNotificationRepository(db)
	reviews := repository.NewReviewRepository(db)
	leads := repository.NewLeadRepository(db)

	a := &App{deps: d, jwt: jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL), Profiles: profiles}

	var pub notification.Publisher
	if d.Hub != nil {
		pub = d.Hub
	}
	a.Notifications = notification.NewService(notifications, pub)

	var purger notification.KeyPurger
	if g, ok := d.Guard.(*idempotency.DBGuard); ok {
		purger = g
	}
	a.Cleanup = notification.NewCleanupService(notifications, purger, cfg.NotificationRetention)

	a.Auth = auth.NewService(profiles, mechanics, a.jwt)
	a.Profile = profile.NewService(profiles, mechanics, d.Store, cfg.UploadMaxBytes)
	a.Requests = request.NewService(db, requests, quotes, vehicles, profiles, a.Notifications, d.Store, cfg.UploadMaxBytes)

	var msgPub messaging.Publisher
	if d.Hub != nil {
		msgPub = d.Hub
	}
	a.Messaging = messaging.NewService(db, threads, messages, requests, quotes, a.Notifications, msgPub)
	a.Reviews = review.NewService(db, reviews, mechanics, profiles, requests, a.Notifications)
	a.Garage = garage.NewService(db, vehicles, documents, d.Store, cfg.UploadMaxBytes)
	a.Leads = lead.NewService(db, leads, profiles, a.Notifications)
	a.Admin = admin.NewService(profiles, mechanics, requests, quotes, messages, reviews, leads, a.Auth)
	return a
}

func (a *App) JWT() *jwtsvc.Service { return a.jwt }

// Router builds the HTTP surface under /api/v1.
func (a *App) Router() *gin.Engine {
	cfg := a.deps.Config
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(a.deps.Logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	if local, ok := a.deps.Store.(*storage.LocalStore); ok {
		r.Static(cfg.UploadURLBase, local.BaseDir())
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	idem := middleware.Idempotency(a.deps.Guard, cfg.IdempotencyTTL)

	v1 := r.Group("/api/v1")
	{
		// public
		auth.NewHandler(a.Auth).RegisterPublicRoutes(v1)
		realtime.NewHandler(a.deps.Hub, a.jwt, a.Profiles, cfg.CORSAllowedOrigins).RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(a.jwt), middleware.LoadSession(a.Profiles))

		profile.NewHandler(a.Profile).RegisterRoutes(v1, protected)
		review.NewHandler(a.Reviews).RegisterRoutes(v1, protected, idem)
		request.NewHandler(a.Requests).RegisterRoutes(protected, idem)
		messaging.NewHandler(a.Messaging).RegisterRoutes(protected, idem)
		notification.NewHandler(a.Notifications).RegisterRoutes(protected)
		garage.NewHandler(a.Garage).RegisterRoutes(protected)
		lead.NewHandler(a.Leads).RegisterRoutes(protected, idem)
		admin.NewHandler(a.Admin).RegisterRoutes(protected.Group("/admin", middleware.AdminOnly()))
	}
	return r
}
