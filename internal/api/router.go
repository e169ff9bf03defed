package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ricirt/venturematch/internal/api/handler"
	apimw "github.com/ricirt/venturematch/internal/api/middleware"
	"github.com/ricirt/venturematch/internal/queue"
	"github.com/ricirt/venturematch/internal/repository"
	"github.com/ricirt/venturematch/internal/service"
	"github.com/ricirt/venturematch/internal/worker"
)

// Deps groups everything the HTTP layer calls into.
type Deps struct {
	Ledger     *service.Ledger
	Dispatcher *service.Dispatcher
	Tasks      repository.TaskRepository
	Producer   *queue.Producer
	Monitor    *worker.Monitor
	DB         handler.Pinger // optional
	Registry   prometheus.Gatherer
	JWTSecret  string
	Logger     *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	hh := handler.NewHealthHandler(d.DB)
	nh := handler.NewNotificationHandler(d.Ledger, d.Logger)
	eh := handler.NewEventsHandler(d.Dispatcher, d.Logger)
	mh := handler.NewModerationHandler(d.Dispatcher, d.Logger)
	ah := handler.NewAdminHandler(d.Tasks, d.Producer, d.Monitor, d.Logger)

	// --- public routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	// Links in the moderation email carry their own ticket.
	r.Get("/moderation/approve/{kind}/{id}", mh.Approve)
	r.Get("/moderation/decline/{kind}/{id}", mh.Decline)

	// --- authenticated API ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.Authenticate(d.JWTSecret))

		r.Get("/notifications/new", nh.New)
		r.Get("/notifications/all", nh.All)

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireRole(apimw.RoleService, apimw.RoleAdmin))
			r.Post("/events/project-created", eh.ProjectCreated)
			r.Post("/events/project-updated", eh.ProjectUpdated)
			r.Post("/events/project-subscribed", eh.ProjectSubscribed)
			r.Post("/events/moderation", eh.Moderation)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(apimw.RequireRole(apimw.RoleAdmin))
			r.Get("/tasks/dead", ah.DeadLettered)
			r.Post("/tasks/{id}/replay", ah.Replay)
			r.Get("/queue", ah.Queue)
		})
	})

	return r
}
