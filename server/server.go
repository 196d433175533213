// Package server monta o roteador HTTP: o endpoint do gateway (protegido pelo
// rate limit) e os endpoints operacionais.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"genai-gateway/gateway"
	"genai-gateway/gateway/outcome"
	"genai-gateway/gateway/response"
	"genai-gateway/middleware/ratelimit"
	"genai-gateway/middleware/ratelimit/domain"
	servermw "genai-gateway/server/middleware"
)

type Options struct {
	Addr        string
	GatewayPath string
	Gateway     *gateway.Handler
	RateLimit   ratelimit.Options
	Translator  *response.Translator
	// Metrics é montado em MetricsPath quando não for nil.
	Metrics     http.Handler
	MetricsPath string
	Logger      *zap.Logger
}

type Server struct {
	router *chi.Mux
	server *http.Server
	logger *zap.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.GatewayPath == "" {
		opts.GatewayPath = "/"
	}

	r := chi.NewRouter()
	// Recovery fica por fora de tudo: nenhum panic chega sem resposta JSON.
	r.Use(servermw.Recovery(opts.Translator, logger))
	r.Use(servermw.RequestID)
	r.Use(servermw.AccessLog(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, opts.Metrics)
	}

	rl := opts.RateLimit
	if rl.Logger == nil {
		rl.Logger = logger
	}
	if rl.Reject == nil {
		rl.Reject = rejectWith(opts.Translator, opts.Gateway)
	}
	// Handle registra todos os métodos: o 405 é decidido pelo gateway,
	// depois do rate limit.
	r.Handle(opts.GatewayPath, ratelimit.Middleware(rl)(opts.Gateway))

	return &Server{
		router: r,
		logger: logger,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// precisa cobrir o timeout do upstream
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  90 * time.Second,
		},
	}
}

func rejectWith(tr *response.Translator, gw *gateway.Handler) ratelimit.RejectFunc {
	return func(w http.ResponseWriter, r *http.Request, _ domain.Decision) {
		if gw != nil && gw.Observer != nil {
			gw.Observer.Outcome(outcome.RateLimited)
		}
		lang := tr.Language(r.Header.Get("Accept-Language"))
		response.Write(w, tr.Error(outcome.RateLimited, lang))
	}
}

// Handler expõe o roteador para testes.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gateway")
	return s.server.Shutdown(ctx)
}
