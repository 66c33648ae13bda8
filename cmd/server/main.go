package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/mealpoint/loyalty/internal/app"
	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"

	"github.com/gin-gonic/gin"
)

func main() {
	mode := flag.String("mode", string(app.ModeAll), "启动模式: all, api, worker")
	migrateOnly := flag.Bool("migrate", false, "仅执行数据库迁移后退出")
	shutdown := flag.Duration("shutdown-timeout", 15*time.Second, "优雅退出等待时间")
	flag.Parse()

	runMode, err := app.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	log := logger.S()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		log.Fatalw("database_init_failed", "driver", cfg.Database.Driver, "error", err)
	}
	if err := models.AutoMigrate(); err != nil {
		log.Fatalw("database_migrate_failed", "error", err)
	}
	if *migrateOnly {
		log.Infow("database_migrated", "driver", cfg.Database.Driver)
		return
	}

	if cfg.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Infow("loyalty_starting", "mode", runMode, "addr", cfg.Server.Addr(), "queue_enabled", cfg.Queue.Enabled)
	if err := app.Run(app.Options{
		Config:          cfg,
		Logger:          log,
		Signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		ShutdownTimeout: *shutdown,
		Mode:            runMode,
	}); err != nil {
		log.Fatalw("loyalty_exit_with_error", "error", err)
	}
}
