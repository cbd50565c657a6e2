// Package stubserver embeds the stub HTTP server into a test process.
//
//	srv, _ := stubserver.New()
//	_ = srv.Start(0)
//	defer srv.Stop(context.Background())
//	_ = srv.Store(&model.MockRule{Method: model.MethodGET, Path: "/ping"})
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go_stub_server/app/http_mock_app"
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/domain/services"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/internal/infra/storage"
	"go_stub_server/utils"
)

// ErrBind is returned by Start when the listening socket cannot be opened.
var ErrBind = errors.New("failed to bind stub server")

// ginModeOnce gin.SetMode 只调用一次, 避免并发写全局变量
var ginModeOnce sync.Once

type Option func(*configs.RuleConfig)

// WithConfig replaces the whole configuration.
func WithConfig(c *configs.RuleConfig) Option {
	return func(dst *configs.RuleConfig) {
		*dst = *c
	}
}

func WithHost(host string) Option {
	return func(c *configs.RuleConfig) {
		c.ServerConfig.Host = host
	}
}

func WithMaxBodySize(n int64) Option {
	return func(c *configs.RuleConfig) {
		c.ServerConfig.MaxBodySize = n
	}
}

type Server struct {
	config      *configs.RuleConfig
	engine      *gin.Engine
	ruleService *services.RuleManageService
	cleanup     func()
	cleanupOnce sync.Once

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
}

// New builds a server with an empty rule store. Nothing listens until Start.
func New(opts ...Option) (*Server, error) {
	config := configs.DefaultRuleConfig()
	config.ServerConfig.Host = "127.0.0.1"
	for _, opt := range opts {
		opt(config)
	}

	mirror, mirrorCleanup, err := storage.NewRuleMirror(config)
	if err != nil {
		return nil, err
	}
	ruleRepo, repoCleanup, err := repo.NewRuleRepoImpl(storage.NewMemoryRuleStore(), mirror, &config.RuleRepoConfig)
	if err != nil {
		mirrorCleanup()
		return nil, err
	}
	ruleService := services.NewRuleManageService(ruleRepo)
	handler := http_mock_app.NewMockHandler(services.NewRuleMatchService(ruleRepo, config), ruleService, config)

	if config.MirrorConfig.RestoreOnStart {
		if _, err := ruleService.RestoreRules(context.Background()); err != nil {
			utils.GetLogger().Warnf("failed to restore rules: %v", err)
		}
	}

	return &Server{
		config:      config,
		engine:      NewEngine(handler),
		ruleService: ruleService,
		cleanup: func() {
			repoCleanup()
			mirrorCleanup()
		},
	}, nil
}

// NewEngine routes every request, whatever its method or path, to handler.
func NewEngine(handler http.Handler) *gin.Engine {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})
	engine := gin.New()
	// 路径原样交给匹配引擎
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false
	engine.Use(requestLogger())
	engine.NoRoute(gin.WrapH(handler))
	return engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.GetLogger().WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("stub request served")
	}
}

// Handler exposes the engine for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds host:port and serves in the background. Port 0 picks a free port.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return fmt.Errorf("stub server already running on %s", s.listener.Addr())
	}

	addr := net.JoinHostPort(s.config.ServerConfig.Host, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %v", ErrBind, addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.config.ServerConfig.ReadTimeout,
		WriteTimeout: s.config.ServerConfig.WriteTimeout,
	}
	s.serveErr = make(chan error, 1)

	go func(srv *http.Server, errCh chan<- error) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.GetLogger().Errorf("stub server error: %v", err)
			errCh <- err
		}
		close(errCh)
	}(s.httpServer, s.serveErr)

	utils.GetLogger().Infof("stub server listening on %s", ln.Addr())
	return nil
}

// Stop shuts the listener down and releases the store and mirror.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, errCh := s.httpServer, s.serveErr
	s.httpServer, s.listener, s.serveErr = nil, nil, nil
	s.mu.Unlock()

	defer s.cleanupOnce.Do(s.cleanup)
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown stub server: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("stub server error: %w", err)
	}
	utils.GetLogger().Info("stub server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns http://<addr>.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Store registers rule in-process, with the same semantics as POST /setMock.
func (s *Server) Store(rule *model.MockRule) error {
	_, err := s.ruleService.CreateRule(context.Background(), rule)
	return err
}

// Rules returns the registered rules.
func (s *Server) Rules() []*model.MockRule {
	rules, _ := s.ruleService.ListRules(context.Background())
	return rules
}

// Reset removes every rule.
func (s *Server) Reset() error {
	return s.ruleService.ResetRules(context.Background())
}
