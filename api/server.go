// Package api exposes the ledger engine over HTTP.
//
// Queries are plain GETs; mutations are POSTs carrying a JSON body with
// the caller address and operation parameters. Responses are JSON.
// Engine errors map onto HTTP status codes: authorization failures are
// 403, malformed input is 400, and state preconditions (stale price,
// insufficient funds, wrong operating mode) are 409.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/core/ledger"
	"github.com/BurstFinance/burst/custody"
	"github.com/BurstFinance/burst/storage"
)

// Server is the HTTP API server over one ledger engine.
type Server struct {
	engine  *ledger.Engine
	store   *storage.LedgerStore
	custody *custody.Ledger
	cfg     config.APIConfig
	log     zerolog.Logger
	router  *mux.Router
	server  *http.Server
	limiter *rate.Limiter
}

// NewServer creates an API server. store and bank may be nil; the event
// journal and custody endpoints then report 404.
func NewServer(engine *ledger.Engine, store *storage.LedgerStore, bank *custody.Ledger, cfg config.APIConfig, log zerolog.Logger) *Server {
	s := &Server{
		engine:  engine,
		store:   store,
		custody: bank,
		cfg:     cfg,
		log:     log.With().Str("component", "api").Logger(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Account queries
	api.HandleFunc("/account/{address}/balance", s.getBalance).Methods("GET")
	api.HandleFunc("/account/{address}/stake", s.getStake).Methods("GET")
	api.HandleFunc("/account/{address}/rewards", s.getRewards).Methods("GET")
	api.HandleFunc("/account/{address}/admin", s.getIsAdmin).Methods("GET")

	// Market queries
	api.HandleFunc("/slots", s.getSlots).Methods("GET")
	api.HandleFunc("/slot/{index}", s.getSlot).Methods("GET")

	// Balance operations
	api.HandleFunc("/transfer", s.postTransfer).Methods("POST")
	api.HandleFunc("/mint", s.postMint).Methods("POST")
	api.HandleFunc("/burn", s.postBurn).Methods("POST")

	// Stake operations
	api.HandleFunc("/stake", s.postStake).Methods("POST")
	api.HandleFunc("/stake/withdraw", s.postWithdrawStake).Methods("POST")

	// Market operations
	api.HandleFunc("/slot/buy", s.postBuySlot).Methods("POST")

	// Reward operations
	api.HandleFunc("/rewards/batch-mint", s.postBatchMint).Methods("POST")
	api.HandleFunc("/rewards/harvest", s.postHarvest).Methods("POST")
	api.HandleFunc("/rewards/compound", s.postCompound).Methods("POST")

	// Admin registry
	api.HandleFunc("/admins", s.getAdmins).Methods("GET")
	api.HandleFunc("/admin/set", s.postSetAdmin).Methods("POST")
	api.HandleFunc("/admin/remove", s.postRemoveAdmin).Methods("POST")

	// Operating mode
	api.HandleFunc("/mining/stop", s.postStopMining).Methods("POST")
	api.HandleFunc("/mining/resume", s.postResumeMining).Methods("POST")

	// Custody
	api.HandleFunc("/account/{address}/holdings", s.getHoldings).Methods("GET")
	api.HandleFunc("/custody/assets", s.getAssets).Methods("GET")
	api.HandleFunc("/custody/deposit", s.postDeposit).Methods("POST")
	api.HandleFunc("/custody/withdraw", s.postWithdraw).Methods("POST")

	// Event journal
	api.HandleFunc("/events", s.getEvents).Methods("GET")

	// Status
	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if s.cfg.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		s.router.Use(c.Handler)
	}
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Str("addr", s.cfg.Addr).Msg("API server starting")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", lrw.statusCode).
			Dur("duration", duration).
			Msg("request")
		observeRequest(r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
