package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/auth"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics    *services.Analytics
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

// Auth carries the login collaborators. Every route other than the login
// pages and /health requires a live session.
type Auth struct {
	Verifier auth.Verifier
	Sessions *auth.Sessions
	Config   config.AuthConfig
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, a Auth) *Server {
	s := &Server{
		analytics:    analytics,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(analytics, logger),
		sseHandlers:  handlers.NewSSEHandlers(analytics, logger),
		pageHandlers: handlers.NewPageHandlers(a.Verifier, a.Sessions, a.Config, logger),
	}
	s.setupRoutes(middleware.RequireSession(a.Sessions, a.Config.CookieName, logger))
	return s
}

func (s *Server) setupRoutes(requireSession middleware.Middleware) {
	protect := func(h http.HandlerFunc) http.Handler {
		return requireSession(h)
	}

	// Public routes
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /login", s.pageHandlers.HandleLoginPage)
	s.mux.HandleFunc("POST /login", s.pageHandlers.HandleLogin)
	s.mux.Handle("POST /logout", protect(s.pageHandlers.HandleLogout))

	// Dashboard routes
	s.mux.Handle("GET /{$}", protect(s.pageHandlers.HandleDashboard))
	s.mux.Handle("GET /admin/stats", protect(s.apiHandlers.HandleStats))

	// REST API endpoints
	s.mux.Handle("GET /api/summary", protect(s.apiHandlers.HandleSummary))
	s.mux.Handle("GET /api/status-counts", protect(s.apiHandlers.HandleStatusCounts))
	s.mux.Handle("GET /api/status-shares", protect(s.apiHandlers.HandleStatusShares))
	s.mux.Handle("GET /api/clients-by-month", protect(s.apiHandlers.HandleClientsByMonth))
	s.mux.Handle("GET /api/sales-by-month", protect(s.apiHandlers.HandleSalesByMonth))
	s.mux.Handle("GET /api/top-clients", protect(s.apiHandlers.HandleTopClients))
	s.mux.Handle("GET /api/top-products", protect(s.apiHandlers.HandleTopProducts))
	s.mux.Handle("GET /api/orders", protect(s.apiHandlers.HandleOrders))
	s.mux.Handle("POST /api/refresh", protect(s.apiHandlers.HandleRefresh))

	// Datastar SSE endpoints
	s.mux.Handle("GET /sse/dashboard", protect(s.sseHandlers.HandleDashboard))
	s.mux.Handle("GET /sse/orders", protect(s.sseHandlers.HandleOrders))
	s.mux.Handle("POST /sse/refresh", protect(s.sseHandlers.HandleRefresh))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
