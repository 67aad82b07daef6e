package cmd

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
	"github.com/mautops/backoffice-gin/internal/api"
	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/mautops/backoffice-gin/internal/container"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Backoffice Gin API server.
The server listens on the configured host and port and shuts down
gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置,命令行参数优先
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		api.SetLogger(logger)
		service.SetLogger(logger)

		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 指定配置文件时监听变更,日志级别无需重启即可生效
		if configPath != "" {
			watcher := config.NewWatcher(cfg, configPath)
			watcher.OnChange(func(old, updated *config.Config) {
				level, err := logrus.ParseLevel(updated.Log.Level)
				if err != nil || updated.Log.Level == old.Log.Level {
					return
				}
				logger.SetLevel(level)
				logger.WithField("level", level.String()).Info("log level changed")
			})
			watcher.OnError(func(err error) {
				logger.WithError(err).Warn("config reload rejected")
			})
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("failed to watch config: %w", err)
			}
			defer watcher.Stop()
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer func() {
			if err := ctr.Close(); err != nil {
				logger.WithError(err).Warn("failed to close container")
			}
		}()

		ctr.Collector().Start()
		defer ctr.Collector().Stop()

		// 4. 设置路由并启动服务器
		router := api.SetupRoutes(cfg, ctr.Controllers(), ctr.TokenStore())
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		// 等待中断信号或启动失败
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err, ok := <-serveErr:
			if ok {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-quit:
		}

		logger.Info("shutting down server")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8000, "Server port")
}
