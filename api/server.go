package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"casebox/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Services groups the service layer the HTTP surface depends on
type Services struct {
	Catalog   service.CatalogService
	Opening   service.OpeningService
	Ledger    service.LedgerService
	Reporting service.ReportingService
	User      service.UserService
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// APIServer serves the public and admin HTTP routes
type APIServer struct {
	server    *http.Server
	services  Services
	health    HealthChecker
	jwtSecret []byte
	now       func() time.Time
}

// New builds a server listening on addr. Admin routes verify bearer tokens
// against jwtSecret.
func New(addr string, services Services, health HealthChecker, jwtSecret string) *APIServer {
	s := &APIServer{
		server: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		services:  services,
		health:    health,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
	s.configureRouter()
	return s
}

// Start listens until Stop is called. It returns nil after a clean shutdown.
func (s *APIServer) Start() error {
	log.WithField("addr", s.server.Addr).Info("Starting HTTP server")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully drains in-flight requests
func (s *APIServer) Stop(ctx context.Context) error {
	defer log.Info("HTTP server stopped")
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured router
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) configureRouter() {
	router := mux.NewRouter()
	router.Use(accessLog)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not_found", "route not found")
	})

	router.HandleFunc("/health", s.healthHandler()).Methods(http.MethodGet)

	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/cases", s.listCasesHandler()).Methods(http.MethodGet)
	public.HandleFunc("/cases/{caseId}/open", s.openCaseHandler()).Methods(http.MethodPost)
	public.HandleFunc("/cases/{caseId}/probabilities", s.probabilitiesHandler()).Methods(http.MethodGet)
	public.HandleFunc("/recent-openings", s.recentOpeningsHandler()).Methods(http.MethodGet)
	public.HandleFunc("/leaderboard", s.leaderboardHandler()).Methods(http.MethodGet)
	public.HandleFunc("/user", s.userHandler()).Methods(http.MethodPost)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/cases", s.adminListCasesHandler()).Methods(http.MethodGet)
	admin.HandleFunc("/cases", s.adminCreateCaseHandler()).Methods(http.MethodPost)
	admin.HandleFunc("/cases/{caseId}", s.adminUpdateCaseHandler()).Methods(http.MethodPatch)
	admin.HandleFunc("/cases/{caseId}", s.adminDeleteCaseHandler()).Methods(http.MethodDelete)
	admin.HandleFunc("/cases/{caseId}/items", s.adminListItemsHandler()).Methods(http.MethodGet)
	admin.HandleFunc("/cases/{caseId}/items", s.adminAddItemHandler()).Methods(http.MethodPost)
	admin.HandleFunc("/cases/{caseId}/stats", s.adminCaseStatsHandler()).Methods(http.MethodGet)
	admin.HandleFunc("/cases/{caseId}/test-open", s.adminTestOpenHandler()).Methods(http.MethodPost)
	admin.HandleFunc("/items/{itemId}", s.adminDeleteItemHandler()).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{userId}/balance", s.adminGrantBalanceHandler()).Methods(http.MethodPost)
	admin.HandleFunc("/users/{userId}/ban", s.adminBanHandler()).Methods(http.MethodPost)
	admin.HandleFunc("/users/{userId}/transactions", s.adminTransactionsHandler()).Methods(http.MethodGet)
	admin.HandleFunc("/users/{userId}/reconcile", s.adminReconcileHandler()).Methods(http.MethodGet)

	s.server.Handler = router
}
