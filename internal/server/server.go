package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mooddiary/apiserver/config"
	"github.com/mooddiary/apiserver/internal/auth"
	"github.com/mooddiary/apiserver/internal/db"
	"github.com/mooddiary/apiserver/internal/handlers"
	"github.com/mooddiary/apiserver/internal/logging"
	"github.com/mooddiary/apiserver/internal/mq"
	"github.com/mooddiary/apiserver/internal/services"
	"github.com/mooddiary/apiserver/internal/store"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *slog.Logger
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Auth           handlers.AuthService
	Diaries        handlers.DiaryService
	Tokens         handlers.TokenParser
	DB             handlers.Pinger
	AllowedOrigins []string
	Logger         *slog.Logger
}

// New opens the database and optional broker, then wires the services
// behind a chi router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var events services.EventPublisher
	if broker != nil {
		events = mq.NewDiaryPublisher(broker, cfg.MQ.DiaryChannel)
		logger.Info("diary events enabled", "backend", cfg.MQ.Backend, "channel", cfg.MQ.DiaryChannel)
	}

	userRepo := store.NewUserRepository(dbConn)
	diaryRepo := store.NewDiaryRepository(dbConn)

	router := NewRouter(Deps{
		Auth:           services.NewAuthService(userRepo, tokens, logger),
		Diaries:        services.NewDiaryService(diaryRepo, events, logger),
		Tokens:         tokens,
		DB:             dbConn,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		logger:     logger,
	}, nil
}

// NewRouter builds the HTTP surface: /healthz plus the /api routes.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(deps.DB))
	router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		handlers.AuthRouter(r, deps.Auth, logger)
		r.Route("/diaries", func(r chi.Router) {
			handlers.DiaryRouter(r, deps.Diaries, handlers.RequireAuth(deps.Tokens), logger)
		})
	})
	return router
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker and the
// database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if cerr := s.mq.Close(); cerr != nil {
			s.logger.Warn("close mq", "error", cerr)
		}
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
