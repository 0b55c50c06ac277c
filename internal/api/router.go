package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/petdesk/internal/api/handlers"
	"github.com/nikhilbhutani/petdesk/internal/api/middleware"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/auth"
	"github.com/nikhilbhutani/petdesk/internal/cache"
	"github.com/nikhilbhutani/petdesk/internal/calendar"
	"github.com/nikhilbhutani/petdesk/internal/campaign"
	"github.com/nikhilbhutani/petdesk/internal/config"
	"github.com/nikhilbhutani/petdesk/internal/dashboard"
	"github.com/nikhilbhutani/petdesk/internal/entitlement"
	"github.com/nikhilbhutani/petdesk/internal/fiscal"
	"github.com/nikhilbhutani/petdesk/internal/identity"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/queue"
	"github.com/nikhilbhutani/petdesk/internal/realtime"
	"github.com/nikhilbhutani/petdesk/internal/scheduling"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/nikhilbhutani/petdesk/internal/storage"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
	"github.com/nikhilbhutani/petdesk/internal/webhook"
)

type Router struct {
	mux     *chi.Mux
	db      *pgxpool.Pool
	redis   *redis.Client
	cfg     *config.Config
	metrics *metrics.Metrics
	queue   *queue.Client
	done    chan struct{}
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, m *metrics.Metrics) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		db:      db,
		redis:   rdb,
		cfg:     cfg,
		metrics: m,
		queue:   queue.NewClient(cfg.Redis),
		done:    make(chan struct{}),
	}
}

// Close stops background helpers started by Setup.
func (rt *Router) Close() error {
	close(rt.done)
	return rt.queue.Close()
}

// Location is the zone used for calendar-day rules, falling back to UTC
// when the configured zone is unknown to the host.
func (rt *Router) Location() *time.Location {
	loc, err := time.LoadLocation(rt.cfg.Campaign.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", rt.cfg.Campaign.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	loc := rt.Location()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	rl := middleware.NewRateLimiter(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
	go rl.Cleanup(rt.done)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, func(ctx context.Context) error {
		return rt.redis.Ping(ctx).Err()
	})
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// Initialize services
	auditSvc := audit.NewService(rt.db)
	tenants := tenant.NewService(rt.db)
	hub := realtime.NewHub(rt.redis, rt.metrics)

	settings := entitlement.NewResolver(entitlement.NewPGStore(rt.db), cache.NewCache(rt.redis, "petdesk"))
	guard := auth.NewGuard(settings)

	identitySvc := identity.NewService(identity.NewPGStore(rt.db, tenants), auditSvc)

	engine := segmentation.NewEngine(segmentation.NewPGStore(rt.db), loc,
		segmentation.WithSettingsInvalidator(settings),
		segmentation.WithAudit(auditSvc),
		segmentation.WithMetrics(rt.metrics),
	)

	campaignSvc := campaign.NewService(
		campaign.NewPGStore(rt.db),
		webhook.NewClient(rt.cfg.Campaign.WebhookTimeout, rt.cfg.Campaign.WebhookSecret),
		campaign.Config{WebhookURL: rt.cfg.Campaign.WebhookURL, MediaBucket: rt.cfg.Storage.MediaBucket},
		loc,
		campaign.WithStorage(storage.NewSupabaseStorage(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)),
		campaign.WithAudit(auditSvc),
		campaign.WithMetrics(rt.metrics),
	)

	fiscalSvc := fiscal.NewService(
		fiscal.NewPGStore(rt.db),
		fiscal.NewFocusClient(rt.cfg.Fiscal.APIKey, rt.cfg.Fiscal.HomologacaoURL, rt.cfg.Fiscal.ProducaoURL, rt.cfg.Fiscal.Timeout),
		fiscal.WithScheduler(rt.queue, rt.cfg.Fiscal.ConsultDelay),
		fiscal.WithAudit(auditSvc),
		fiscal.WithMetrics(rt.metrics),
	)

	schedulingSvc := scheduling.NewService(scheduling.NewPGStore(rt.db),
		scheduling.WithNotifier(hub),
		scheduling.WithPurchaseRecorder(engine),
	)

	dashboardSvc := dashboard.NewService(dashboard.NewPGStore(rt.db), settings, loc)

	calendarSvc := calendar.NewService(
		calendar.OAuthConfig{
			ClientID:     rt.cfg.Google.ClientID,
			ClientSecret: rt.cfg.Google.ClientSecret,
			RedirectURL:  rt.cfg.Google.RedirectURL,
		},
		calendar.NewPGStore(rt.db),
		calendar.NewClient(rt.cfg.Google.APIBaseURL, 30*time.Second),
		auditSvc,
	)
	syncer := calendar.NewSyncer(schedulingSvc, rt.metrics)

	jwtAuth := auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret, identitySvc)
	keyAuth := auth.NewAPIKeyMiddleware(auth.NewPGKeyStore(rt.db), tenants, rt.cfg.Auth.APIKeyHeader)

	identityH := handlers.NewIdentityHandler(identitySvc)
	settingsH := handlers.NewSettingsHandler(settings)
	campaignH := handlers.NewCampaignHandler(campaignSvc, engine, rt.queue)
	fiscalH := handlers.NewFiscalHandler(fiscalSvc)
	dashboardH := handlers.NewDashboardHandler(dashboardSvc)
	schedulingH := handlers.NewSchedulingHandler(schedulingSvc, loc)
	calendarH := handlers.NewCalendarHandler(calendarSvc, syncer)
	adminH := handlers.NewAdminHandler(auditSvc)

	// Machine callers authenticate with a tenant API key.
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(keyAuth.Authenticate)
		r.With(
			auth.RequireScope(auth.ScopeCalendarSync),
			webhook.RequireSignature(rt.cfg.Campaign.WebhookSecret),
		).Post("/calendar-sync", calendarH.Sync)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtAuth.Authenticate)

		// Reachable before the user belongs to a tenant.
		r.Get("/me", identityH.Me)
		r.Post("/onboarding/tenant", identityH.CreateTenant)
		r.Post("/onboarding/accept-invite", identityH.AcceptInvite)
		r.Get("/invites/validate", identityH.ValidateInvite)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireProfile)

			r.Get("/settings", settingsH.Get)
			r.Get("/navigation", settingsH.Navigation)
			r.Get("/realtime", hub.ServeHTTP)

			r.Group(adminRoutes(settingsH, identityH, adminH))

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/day", dashboardH.Day)
				r.Get("/month", dashboardH.Month)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", schedulingH.ListClients)
				r.Post("/", schedulingH.CreateClient)
				r.Get("/{id}", schedulingH.GetClient)
				r.Put("/{id}", schedulingH.UpdateClient)
				r.Delete("/{id}", schedulingH.DeleteClient)
			})

			r.Route("/pets", func(r chi.Router) {
				r.Get("/", schedulingH.ListPets)
				r.Post("/", schedulingH.CreatePet)
				r.Get("/{id}", schedulingH.GetPet)
				r.Put("/{id}", schedulingH.UpdatePet)
				r.Delete("/{id}", schedulingH.DeletePet)
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Use(guard.RequireModule(entitlement.ModPetshop))
				r.Get("/", schedulingH.ListAppointments)
				r.Post("/", schedulingH.CreateAppointment)
				r.Get("/{id}", schedulingH.GetAppointment)
				r.Patch("/{id}", schedulingH.UpdateAppointment)
				r.Put("/{id}/status", schedulingH.SetAppointmentStatus)
				r.Put("/{id}/kanban", schedulingH.SetKanban)
				r.Delete("/{id}", schedulingH.DeleteAppointment)
			})

			r.Route("/hotel/stays", func(r chi.Router) {
				r.Use(guard.RequireModule(entitlement.ModHotel))
				r.Get("/", schedulingH.ListStays)
				r.Post("/", schedulingH.CreateStay)
				r.Get("/{id}", schedulingH.GetStay)
				r.Patch("/{id}", schedulingH.UpdateStay)
				r.Put("/{id}/status", schedulingH.SetStayStatus)
				r.Delete("/{id}", schedulingH.DeleteStay)
			})

			r.With(guard.RequireModule(entitlement.ModPDV)).Post("/sales", schedulingH.RegisterSale)

			r.Route("/campaigns", campaignRoutes(guard, campaignH))

			r.Route("/fiscal", func(r chi.Router) {
				r.Use(guard.RequireModule(entitlement.ModPDV))
				r.Post("/", fiscalH.Action)
				r.Get("/notas", fiscalH.List)
				r.Post("/notas", fiscalH.Emitir)
				r.Get("/notas/{id}", fiscalH.Get)
				r.Post("/notas/{id}/consultar", fiscalH.Consultar)
				r.Post("/notas/{id}/cancelar", fiscalH.Cancelar)
				r.Get("/config/validar", fiscalH.ValidarConfig)
			})

			r.Post("/calendar", calendarH.Action)
		})
	})

	return r
}

func adminRoutes(settingsH *handlers.SettingsHandler, identityH *handlers.IdentityHandler, adminH *handlers.AdminHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Put("/settings/plan", settingsH.SetPlan)
		r.Put("/settings/modules", settingsH.SetModule)
		r.Post("/invites", identityH.CreateInvite)
		r.Get("/invites", identityH.ListInvites)
		r.Delete("/invites/{id}", identityH.RevokeInvite)
		r.Get("/members", identityH.ListMembers)
		r.Patch("/members/{id}", identityH.UpdateMember)
		r.Get("/audit", adminH.AuditLogs)
	}
}

// campaignRoutes sits behind mod_marketing, the module that unlocks the
// Marketing menu item.
func campaignRoutes(guard *auth.Guard, h *handlers.CampaignHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(guard.RequireModule(entitlement.ModMarketing))
		r.Get("/", h.List)
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/recalculate", h.Recalculate)
		r.Get("/segments", h.Segments)
		r.Post("/preview", h.Preview)
		r.Post("/dispatch", h.Dispatch)
		r.Post("/media", h.UploadMedia)
		r.Get("/export", h.Export)
	}
}
