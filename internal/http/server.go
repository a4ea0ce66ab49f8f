package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tempo/internal/cache"
	"tempo/internal/core"
	"tempo/internal/middleware/ratelimit"
	"tempo/internal/middleware/security"
	"tempo/internal/middleware/trace"
	"tempo/internal/services"
	"tempo/internal/storage"
)

// SyncPublisher requests a track sync run, returning its run ID. A nil
// publisher disables the sync endpoint.
type SyncPublisher interface {
	PublishTrackSync(ctx context.Context, since time.Time) (string, error)
}

// Server is the JSON API server. Analytics responses are cached briefly
// since the underlying track set only changes on sync.
type Server struct {
	http.Server

	goals     *services.GoalService
	audits    *services.AuditService
	analytics *services.AnalyticsService
	exporter  *services.ExportService
	publisher SyncPublisher
	storage   *storage.SQLiteRepository

	limiter      *ratelimit.Limiter
	cacheManager *cache.Manager

	timelineCache *cache.LRUCache[[]core.TimeBucket]
	projectsCache *cache.LRUCache[[]core.ProjectShare]
	hourlyCache   *cache.LRUCache[[]core.HourBucket]

	shutdownOnce sync.Once
}

// Deps carries everything the server needs. Publisher and Exporter may be
// nil when their integrations are not configured.
type Deps struct {
	Storage   *storage.SQLiteRepository
	Goals     *services.GoalService
	Audits    *services.AuditService
	Analytics *services.AnalyticsService
	Exporter  *services.ExportService
	Publisher SyncPublisher
}

func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		goals:     deps.Goals,
		audits:    deps.Audits,
		analytics: deps.Analytics,
		exporter:  deps.Exporter,
		publisher: deps.Publisher,
		storage:   deps.Storage,

		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		cacheManager: cache.NewManager(),

		timelineCache: cache.NewLRUCache[[]core.TimeBucket](100, time.Minute),
		projectsCache: cache.NewLRUCache[[]core.ProjectShare](100, time.Minute),
		hourlyCache:   cache.NewLRUCache[[]core.HourBucket](100, time.Minute),
	}

	s.cacheManager.Register(s.timelineCache)
	s.cacheManager.Register(s.projectsCache)
	s.cacheManager.Register(s.hourlyCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ClientIP)
	limit := s.limiter.Middleware(ClientIP, nil)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/areas", s.handleCreateArea)
	mux.HandleFunc("GET /api/areas", s.handleListAreas)
	mux.HandleFunc("PUT /api/areas/{id}", s.handleUpdateArea)
	mux.HandleFunc("DELETE /api/areas/{id}", s.handleDeleteArea)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("GET /api/goals/progress", s.handleAllGoalProgress)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/goals/{id}/progress", s.handleGoalProgress)

	mux.HandleFunc("POST /api/audits", s.handleCreateAudit)
	mux.HandleFunc("GET /api/audits", s.handleListAudits)
	mux.HandleFunc("GET /api/audits/active", s.handleActiveAudit)
	mux.HandleFunc("GET /api/audits/{id}", s.handleGetAudit)
	mux.HandleFunc("POST /api/audits/{id}/complete", s.handleCompleteAudit)
	mux.HandleFunc("POST /api/audits/{id}/abandon", s.handleAbandonAudit)
	mux.HandleFunc("GET /api/audits/{id}/progress", s.handleAuditProgress)
	mux.HandleFunc("POST /api/audits/{id}/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/audits/{id}/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/audits/{id}/export", s.handleExportAudit)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)

	mux.HandleFunc("GET /api/tracks", s.handleListTracks)

	mux.HandleFunc("GET /api/analytics/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/analytics/projects", s.handleProjects)
	mux.HandleFunc("GET /api/analytics/hours", s.handleHours)
	mux.HandleFunc("GET /api/analytics/trend", s.handleTrend)

	mux.HandleFunc("POST /api/sync", s.handleSync)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// InvalidateAnalyticsCaches drops cached aggregates. The sync endpoint calls
// it at enqueue time, before the worker has landed the new tracks: a request
// racing the worker can briefly re-cache pre-sync aggregates, and the cache
// TTL bounds that staleness to a minute.
func (s *Server) InvalidateAnalyticsCaches() {
	s.timelineCache.Clear()
	s.projectsCache.Clear()
	s.hourlyCache.Clear()
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
