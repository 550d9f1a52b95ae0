// Package server wires the HTTP routes of the market service.
package server

import (
	"context"
	"fmt"
	"net/http"

	"milestoneamm/config"
	"milestoneamm/handlers"
	"milestoneamm/handlers/accounts"
	adminhandlers "milestoneamm/handlers/admin"
	"milestoneamm/handlers/markets"
	"milestoneamm/handlers/trades"
	"milestoneamm/middleware"
	"milestoneamm/service"
	"milestoneamm/telemetry"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Deps are the components the routes call into.
type Deps struct {
	Service *service.MarketService
	Auth    *middleware.Authenticator
	Limiter *middleware.RateLimiter
	Hub     *telemetry.Hub
	Log     *zap.Logger
}

// NewRouter builds the /v0 API behind request logging and CORS.
func NewRouter(d Deps, corsOrigins []string) http.Handler {
	public := func(h http.HandlerFunc) http.Handler {
		return d.Limiter.Middleware(h)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return d.Auth.RequireIdentity(d.Limiter.Middleware(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return d.Auth.RequireAdmin(d.Limiter.Middleware(h))
	}
	svc := d.Service

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/v0").Subrouter()

	// Markets
	api.Handle("/markets", authed(markets.CreateMarketHandler(svc))).Methods(http.MethodPost)
	api.Handle("/markets", public(markets.ListMarketsHandler(svc))).Methods(http.MethodGet)
	api.Handle("/markets/{key}", public(markets.GetMarketHandler(svc))).Methods(http.MethodGet)
	api.Handle("/markets/{key}/quote", public(markets.QuoteHandler(svc))).Methods(http.MethodGet)
	api.Handle("/markets/{key}/seed", authed(markets.SeedLiquidityHandler(svc))).Methods(http.MethodPost)
	api.Handle("/markets/{key}/settle", authed(markets.SettleHandler(svc))).Methods(http.MethodPost)
	api.Handle("/markets/{key}/positions/{owner}", public(markets.GetPositionHandler(svc))).Methods(http.MethodGet)
	api.Handle("/markets/{key}/trades", public(markets.ListTradesHandler(svc))).Methods(http.MethodGet)
	if d.Hub != nil {
		api.Handle("/markets/{key}/stream", markets.StreamHandler(svc, d.Hub)).Methods(http.MethodGet)
	}

	// Trading
	api.Handle("/markets/{key}/buy", authed(trades.BuyHandler(svc))).Methods(http.MethodPost)
	api.Handle("/markets/{key}/sell", authed(trades.SellHandler(svc))).Methods(http.MethodPost)
	api.Handle("/markets/{key}/redeem", authed(trades.RedeemHandler(svc))).Methods(http.MethodPost)

	// Authority operations. The market core checks the caller is the authority.
	api.Handle("/admin/markets/{key}/pause", authed(adminhandlers.PauseMarketHandler(svc))).Methods(http.MethodPost)
	api.Handle("/admin/markets/{key}/params", authed(adminhandlers.UpdateParamsHandler(svc))).Methods(http.MethodPatch)

	// Accounts
	api.Handle("/accounts", authed(accounts.CreateAccountHandler(svc))).Methods(http.MethodPost)
	api.Handle("/accounts/{id}", authed(accounts.GetAccountHandler(svc, d.Auth))).Methods(http.MethodGet)
	api.Handle("/accounts/{id}/entries", authed(accounts.AccountEntriesHandler(svc, d.Auth))).Methods(http.MethodGet)
	api.Handle("/accounts/{id}/mint", admin(adminhandlers.MintHandler(svc))).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         86400,
	})
	return c.Handler(middleware.Logging(d.Log)(r))
}

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// New creates a server for handler using the configured port and timeouts.
func New(cfg config.ServerConfig, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server: starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server: listen")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server: shutting down")
	return errors.Wrap(s.httpServer.Shutdown(ctx), "server: shutdown")
}
