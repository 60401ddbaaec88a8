// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

// Package httpapi exposes the auth service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/samber/oops"

	"github.com/safeconnect/safeconnect/internal/auth"
	"github.com/safeconnect/safeconnect/internal/observability"
)

// AuthService is the subset of auth.Service the handlers call.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetCurrentAccount(ctx context.Context, token string) (*auth.PublicAccount, error)
}

var _ AuthService = (*auth.Service)(nil)

// Config configures the HTTP API.
type Config struct {
	RequestTimeout time.Duration
	// CORSOrigins is a comma-separated origin list; "*" allows any origin.
	CORSOrigins string
	// Metrics may be nil, in which case no request metrics are recorded.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	app     *fiber.App
	service AuthService
	logger  *slog.Logger
}

// New builds the fiber app with all routes and middleware installed.
func New(service AuthService, cfg Config) (*Server, error) {
	if service == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("auth service is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, oops.Code("HTTPAPI_INVALID").
			With("request_timeout", cfg.RequestTimeout).
			Errorf("request timeout must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	s := &Server{service: service, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "safeconnect",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(requestid.New(requestid.Config{ContextKey: requestIDKey}))
	s.app.Use(observe(logger, cfg.Metrics))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	s.app.Use(requestContext(cfg.RequestTimeout))

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/api/health", s.health)

	api := s.app.Group("/api/auth")
	api.Post("/register", s.register)
	api.Post("/login", s.login)
	api.Post("/logout", s.logout)
	api.Get("/profile", s.profile)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}
