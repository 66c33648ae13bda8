package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务（消费 + 定时调度）
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	consumer  *Consumer
}

// scheduledTask 定时任务定义
type scheduledTask struct {
	cron  string
	build func() (*asynq.Task, error)
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, schedule *config.ScheduleConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler, err := buildScheduler(opt, schedule)
	if err != nil {
		return nil, err
	}
	return &Service{
		name:      "worker",
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		consumer:  consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()
	return nil
}

func buildScheduler(opt asynq.RedisClientOpt, schedule *config.ScheduleConfig) (*asynq.Scheduler, error) {
	tasks := scheduledTasks(schedule)
	if len(tasks) == 0 {
		return nil, nil
	}
	location, err := resolveLocation(schedule.Timezone)
	if err != nil {
		return nil, err
	}
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: location})
	for _, item := range tasks {
		task, err := item.build()
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(item.cron, task, asynq.Queue(queue.DefaultQueue))
		if err != nil {
			logger.Warnw("worker_schedule_register_failed", "task", task.Type(), "cron", item.cron, "error", err)
			return nil, err
		}
		logger.Infow("worker_schedule_registered", "task", task.Type(), "cron", item.cron, "entry_id", entryID)
	}
	return scheduler, nil
}

// scheduledTasks 根据配置生成定时任务，cron 为空的任务不注册
func scheduledTasks(schedule *config.ScheduleConfig) []scheduledTask {
	if schedule == nil {
		return nil
	}
	days := schedule.ExpiringSoonDays
	if days <= 0 {
		days = constants.DefaultExpiringSoonDays
	}
	candidates := []scheduledTask{
		{
			cron: schedule.ExpirePointsCron,
			build: func() (*asynq.Task, error) {
				return queue.NewExpirePointsTask(queue.ExpirePointsPayload{})
			},
		},
		{
			cron: schedule.ExpiringSoonCron,
			build: func() (*asynq.Task, error) {
				return queue.NewExpiringSoonTask(queue.ExpiringSoonPayload{Days: days})
			},
		},
		{
			cron:  schedule.PromotionStatusCron,
			build: queue.NewPromotionSyncStatusTask,
		},
	}
	result := make([]scheduledTask, 0, len(candidates))
	for _, item := range candidates {
		item.cron = strings.TrimSpace(item.cron)
		if item.cron == "" {
			continue
		}
		result = append(result, item)
	}
	return result
}

func resolveLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
