package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chassis/go-chassis/v2"
	"github.com/spf13/cobra"

	"go_stub_server/app/http_mock_app"
	"go_stub_server/internal/domain/services"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/pkg/stubserver"
	"go_stub_server/utils"
)

const (
	transportGin     = "gin"
	transportChassis = "chassis"

	shutdownTimeout = 10 * time.Second
)

var (
	configPath string
	transport  string
	port       int
)

// App 由 wire 组装
type App struct {
	Config      *configs.RuleConfig
	RuleService *services.RuleManageService
	Handler     *http_mock_app.MockHandler
	Controller  *http_mock_app.MockController
}

func NewApp(c *configs.RuleConfig, ruleService *services.RuleManageService, handler *http_mock_app.MockHandler, controller *http_mock_app.MockController) *App {
	return &App{
		Config:      c,
		RuleService: ruleService,
		Handler:     handler,
		Controller:  controller,
	}
}

var rootCmd = &cobra.Command{
	Use:          "stub_server",
	Short:        "HTTP stub server: register canned responses with POST /setMock",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadRuleConfigFrom(configs.ConfigPath(configPath))
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			config.ServerConfig.Port = port
		}
		if err := utils.InitLogger(config.LogConfig); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		app, cleanup, err := InitializeApp(config)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer cleanup()

		if config.MirrorConfig.RestoreOnStart {
			if _, err := app.RuleService.RestoreRules(cmd.Context()); err != nil {
				utils.GetLogger().Warnf("failed to restore rules: %v", err)
			}
		}

		switch transport {
		case transportGin:
			return runGin(cmd.Context(), app)
		case transportChassis:
			return runChassis(app)
		default:
			return fmt.Errorf("unknown transport %q, want %s or %s", transport, transportGin, transportChassis)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default $RULE_CONFIG_PATH or rule.<RULE_ENV>.yaml)")
	rootCmd.Flags().StringVar(&transport, "transport", transportGin, "serving stack: gin or chassis")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides server.port")
}

func runGin(ctx context.Context, app *App) error {
	sc := app.Config.ServerConfig
	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      stubserver.NewEngine(app.Handler),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %v", stubserver.ErrBind, addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	utils.GetLogger().Infof("stub server listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	utils.GetLogger().Info("shutting down stub server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// runChassis 监听地址由 conf/chassis.yaml 决定
func runChassis(app *App) error {
	chassis.RegisterSchema("rest", app.Controller)
	if err := chassis.Init(); err != nil {
		return fmt.Errorf("failed to init go-chassis: %w", err)
	}
	if err := http_mock_app.RegisterMetrics(); err != nil {
		utils.GetLogger().Warnf("failed to register metrics: %v", err)
	}
	return chassis.Run()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		utils.GetLogger().Errorf("stub server exited: %v", err)
		os.Exit(1)
	}
}
