package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Togather-Foundation/social-events/internal/api/handlers"
	"github.com/Togather-Foundation/social-events/internal/api/middleware"
	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/config"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/metrics"
	"github.com/Togather-Foundation/social-events/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are constructed by the serve command and handed to the router.
type Dependencies struct {
	Config    config.Config
	Logger    zerolog.Logger
	Store     storage.Store
	Verifier  auth.Verifier
	Joined    *joined.Service
	Version   string
	GitCommit string
	BuildDate string
}

// Router is the root HTTP handler. Close stops background work owned by its
// middleware.
type Router struct {
	handler http.Handler
	limiter *middleware.RateLimiter
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

func (rt *Router) Close() {
	rt.limiter.Stop()
}

func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	joinedService := deps.Joined
	if joinedService == nil {
		joinedService = joined.NewService(deps.Store.Joined())
	}

	eventsHandler := handlers.NewEventsHandler(events.NewService(deps.Store.Events()), cfg.Environment)
	joinedHandler := handlers.NewJoinedHandler(joinedService, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(deps.Store, deps.Version, deps.GitCommit)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	requireAuth := middleware.RequireAuth(deps.Verifier, cfg.Environment)

	public := func(h http.HandlerFunc) http.Handler {
		return limiter.Handler(middleware.TierPublic)(h)
	}
	private := func(h http.HandlerFunc) http.Handler {
		return requireAuth(limiter.Handler(middleware.TierAuthenticated)(h))
	}

	mux := http.NewServeMux()
	route := func(pattern string, methods map[string]http.Handler) {
		label := pattern
		if pattern == "/{$}" {
			label = "/"
		}
		mux.Handle(pattern, metrics.HTTPMiddleware(label)(methodMux(methods)))
	}

	route("/{$}", map[string]http.Handler{http.MethodGet: handlers.Root()})
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", healthChecker.Health())
	mux.Handle("/health", healthChecker.Health())
	mux.Handle("/version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("/openapi.json", OpenAPIHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	route("/events", map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: private(eventsHandler.Create),
	})
	route("/events/{id}", map[string]http.Handler{
		http.MethodGet:    private(eventsHandler.Get),
		http.MethodPut:    private(eventsHandler.Update),
		http.MethodDelete: private(eventsHandler.Delete),
	})
	route("/search", map[string]http.Handler{http.MethodGet: public(eventsHandler.Search)})
	route("/filter", map[string]http.Handler{http.MethodGet: public(eventsHandler.Filter)})
	route("/manage-event", map[string]http.Handler{http.MethodGet: private(eventsHandler.Manage)})
	route("/manage-event/{id}", map[string]http.Handler{http.MethodDelete: private(eventsHandler.ManageDelete)})

	route("/joined", map[string]http.Handler{http.MethodPost: private(joinedHandler.Join)})
	route("/joined-event", map[string]http.Handler{http.MethodGet: private(joinedHandler.List)})
	route("/joined-event/{id}", map[string]http.Handler{http.MethodDelete: private(joinedHandler.Delete)})

	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.CORS(cfg.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)

	return &Router{handler: handler, limiter: limiter}
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
