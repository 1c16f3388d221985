package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/customeros/maildigest/api"
	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/internal/cron"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/repository"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/services"
)

const (
	shutdownTimeout   = 15 * time.Second
	pollerStopTimeout = 2 * time.Minute
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	poller       *cron.Poller
	tracerCloser io.Closer
}

// NewServer wires services, routes and, when enabled, the poller. db may be
// nil when the archive is not configured.
func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	_, closer, err := tracing.InitGlobalTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}

	var repos *repository.Repositories
	if db != nil {
		repos = repository.InitRepositories(db)
	}

	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if cfg.PollerConfig.Enabled {
		s.poller = cron.NewPoller(cfg.PollerConfig, appLogger, svcs.PipelineService, svcs.MessageSource)
	}
	return s, nil
}

func (s *Server) Initialize() error {
	api.RegisterRoutes(s.router, s.config, s.services)
	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)

		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Error("Panic recovered", zap.String("process", name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	if err := s.Initialize(); err != nil {
		return err
	}

	if s.poller != nil {
		s.log.Info("Starting poller...")
		if err := s.poller.Start(); err != nil {
			return err
		}
	}

	serveErr := make(chan error, 1)
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	})
	s.log.Info("Maildigest is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown(serveErr)
}

func (s *Server) waitForShutdown(serveErr <-chan error) error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		s.log.Info("Shutting down...")
	case runErr = <-serveErr:
		s.log.Error("HTTP server error", zap.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	if s.poller != nil {
		s.log.Info("Stopping poller, waiting for the running cycle...")
		stopDone := make(chan struct{})
		go s.wrapGoroutine("poller_shutdown", func() {
			defer close(stopDone)
			s.poller.Stop()
		})

		select {
		case <-stopDone:
			s.log.Info("Poller stopped gracefully")
		case <-time.After(pollerStopTimeout):
			s.log.Warn("Poller stop timed out, forcing exit")
		}
	}

	if err := s.services.Close(); err != nil {
		s.log.Warn("Closing services failed", zap.Error(err))
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}
	_ = s.log.Sync()

	return runErr
}
