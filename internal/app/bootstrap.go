package app

import (
	"errors"
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/provider"
	"github.com/mealpoint/loyalty/internal/router"
	"github.com/mealpoint/loyalty/internal/worker"
)

// BuildRunner 按运行模式组装 HTTP 与 worker 服务
// all 模式下队列未启用时只跳过 worker；worker 模式下队列未启用直接报错。
func BuildRunner(cfg *config.Config, rawMode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(rawMode)
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	services := make([]Service, 0, 2)

	if mode.servesAPI() {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine, HTTPTimeouts{
			Read:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
			Write: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		}))
	}

	if mode.runsWorker() {
		workerService, err := worker.NewService(&cfg.Queue, &cfg.Schedule, worker.NewConsumer(container))
		switch {
		case err == nil:
			services = append(services, workerService)
		case mode == ModeAll && !cfg.Queue.Enabled:
			logger.Warnw("app_worker_skipped", "reason", "queue disabled")
		default:
			_ = container.Close()
			return nil, err
		}
	}

	if len(services) == 0 {
		_ = container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...).WithCloser(container.Close).WithCloser(models.CloseDB), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	runner, err := BuildRunner(opts.Config, string(opts.Mode))
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
