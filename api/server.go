package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/foliosearch/config"
	"github.com/meghashyamc/foliosearch/content"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/index"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/meghashyamc/foliosearch/validation"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	cfg          *config.Config
	router       *gin.Engine
	httpServer   *http.Server
	kvdb         *kvdb.BoltDB
	searchdb     *searchdb.BleveDB
	engine       *search.Engine
	indexService *index.Service
	validator    *validation.Validator
	logger       logger.Logger
}

// Run builds the index, serves HTTP and blocks until ctx is cancelled or the
// process receives an interrupt.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.New(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	defer s.closeDependencies()

	if _, err := s.indexService.Initialize(ctx); err != nil {
		// The server still starts; searches return 503 until a rebuild succeeds.
		s.logger.Error("initial index build failed", "err", err.Error())
	}

	if cfg.GetWatchContent() {
		go func() {
			if err := s.indexService.Watch(ctx, cfg.GetWatchDebounce()); err != nil {
				s.logger.Error("content watcher stopped", "err", err.Error())
			}
		}()
	}

	s.setupRouter()
	serverErrC := s.setupHTTPServer()

	return s.waitForShutdown(ctx, serverErrC)
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error
	s.kvdb, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.searchdb, err = searchdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		s.kvdb.Close()
		return err
	}
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		s.closeDependencies()
		return err
	}

	s.engine = search.New(s.logger)
	loader := content.NewLoader(s.logger, s.cfg.GetContentDir())
	s.indexService = index.New(ctx, s.logger, s.engine, loader, s.searchdb, s.kvdb)

	return nil
}

func (s *server) closeDependencies() {
	if s.searchdb != nil {
		s.searchdb.Close()
	}
	if s.kvdb != nil {
		s.kvdb.Close()
	}
}

func (s *server) setupRouter() {
	router := newRouter(s.logger)

	setupRoutes(router, routeDeps{
		logger:             s.logger,
		searcher:           s.engine,
		deepDB:             s.searchdb,
		indexService:       s.indexService,
		validator:          s.validator,
		rateLimitPerSecond: s.cfg.GetRateLimitPerSecond(),
		rateLimitBurst:     s.cfg.GetRateLimitBurst(),
	})

	s.router = router
}

func (s *server) setupHTTPServer() <-chan error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrC := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrC <- err
		}
		close(serverErrC)
	}()

	return serverErrC
}

func (s *server) waitForShutdown(ctx context.Context, serverErrC <-chan error) error {
	select {
	case err := <-serverErrC:
		if err != nil {
			s.logger.Error("http server failed", "err", err.Error())
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err.Error())
		return err
	}
	s.logger.Info("shut down http server successfully")

	return nil
}
