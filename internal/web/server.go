// Package web exposes the portal controller over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"moodle-portal/internal/obs"
	"moodle-portal/internal/portal"
)

type Options struct {
	Address    string
	Controller *portal.Controller
	Log        *zap.Logger
	Debug      bool
	// LoginRatePerMin caps login attempts per client IP.
	LoginRatePerMin int
	// SecureCookie marks the session cookie Secure; set it behind TLS.
	SecureCookie bool
}

type Server struct {
	opts *Options
	app  *echo.Echo
	ctl  *portal.Controller
	log  *zap.Logger
}

func NewServer(opts *Options) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.LoginRatePerMin <= 0 {
		opts.LoginRatePerMin = 10
	}
	s := &Server{
		opts: opts,
		app:  echo.New(),
		ctl:  opts.Controller,
		log:  opts.Log,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	obs.Init()

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = s.opts.Debug
	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.log)
	s.app.Renderer = newRenderer()

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	s.app.Use(requestLogger(s.log))
	if !s.opts.Debug {
		s.app.Use(middleware.Recover())
	}

	s.app.GET("/healthz", healthz)
	s.app.GET("/metrics", echo.WrapHandler(obs.Handler()))

	sk := sessionKeyMiddleware(s.opts.SecureCookie)

	api := s.app.Group("/api", sk)
	api.POST("/login", s.login, loginRateLimiter(s.opts.LoginRatePerMin))
	api.POST("/logout", s.logout)
	api.GET("/session", s.session)
	api.GET("/state", s.state)
	api.POST("/views/:view", s.switchView)
	api.POST("/courses", s.createCourse)
	api.POST("/users", s.createUser)

	s.app.GET("/sso", s.sso, sk)
}

// loginRateLimiter allows perMin attempts per minute per client IP.
func loginRateLimiter(perMin int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMin) / 60),
		Burst:     perMin,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again in a minute")
		},
	})
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("portal listening", zap.String("addr", s.opts.Address))
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
