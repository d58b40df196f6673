package agent

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pgbouncer-exporter/internal/reload"
	"github.com/pgbouncer-exporter/internal/server"
	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/logger"
	"github.com/pgbouncer-exporter/pkg/registers"
	"github.com/pgbouncer-exporter/pkg/signal"
	"github.com/pgbouncer-exporter/pkg/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "pgbouncer-exporter",
	Short:        "Prometheus exporter for PgBouncer (SHOW STATS / POOLS / DATABASES)",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		loader := config.NewLoader(cfgFile, cmd.Flags())
		cfg, err := loader.Load()
		if err != nil {
			// 统一输出错误到 stderr
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			os.Exit(1)
		}
		if err := runServer(loader, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
			os.Exit(1)
		}
		// 不等待进行中的采集或重载，直接退出
		os.Exit(0)
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yml", "配置文件路径")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initLogFlags(rootCmd)
}

func runServer(loader *config.Loader, cfg *config.Config) error {
	// 1. 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.GetLogger()

	// 2. banner
	util.PrintBanner(os.Stdout, "pgbouncer-exporter", "", "ColorBlue")
	logger.Info("Starting PgBouncer exporter",
		zap.String("config", loader.Path()),
		zap.String("listen_addr", cfg.ListenAddr()),
		zap.Int("targets", len(cfg.PgBouncers)),
	)

	// 3. 注册器：进程指标 + 自身指标 + 聚合采集器
	const enableProcess = true
	reg, err := registers.InitPromRegistry(cfg, log, enableProcess)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	// 4. HTTP 服务
	httpServer := server.NewHTTPServer(cfg.ListenAddr(), log.Named("http"), reg.Prom)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("start HTTP server failed: %w", err)
	}

	// 5. 重载协调器；SIGHUP 和配置文件变更都只登记一次触发
	coordinator := reload.NewCoordinator(
		cfg.ReloadInterval,
		loader.Load,
		reg.Aggregate,
		log.Named("reload"),
		reload.WithMetrics(reg.Metrics),
		reload.WithTriggerHook(logger.Reopen),
	)
	stop := signal.Notify(log, signal.Handlers{
		OnReload:   coordinator.Trigger,
		OnShutdown: coordinator.Shutdown,
	})
	defer stop()

	if cfg.WatchConfig {
		watcher, err := reload.NewWatcher(loader.Path(), coordinator.Trigger, log.Named("watch"))
		if err != nil {
			logger.Warn("config watcher disabled", zap.Error(err))
		} else {
			watcher.Start()
			defer func() { _ = watcher.Close() }()
		}
	}

	// 6. 主循环，观察到退出标志后返回
	coordinator.Run()
	logger.Info("Exporter has shutdown")
	return nil
}
