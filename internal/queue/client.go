package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 维护任务队列
	DefaultQueue = constants.QueueDefault
	// EventsQueue 领域事件队列
	EventsQueue = constants.QueueEvents

	// 同一维护任务在窗口内只入队一次，避免重复触发
	jobUniqueWindow = time.Minute
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Client asynq 客户端封装；未启用时事件静默丢弃，维护任务返回 ErrQueueDisabled
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(BuildRedisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueDomainEvent 推送领域事件，至多投递一次
func (c *Client) EnqueueDomainEvent(payload DomainEventPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewDomainEventTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.Queue(EventsQueue), asynq.MaxRetry(0))
}

// EnqueueExpirePoints 手动触发一次积分过期清理
func (c *Client) EnqueueExpirePoints(payload ExpirePointsPayload) error {
	task, err := NewExpirePointsTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueJob(task)
}

// EnqueuePromotionSyncStatus 手动触发一次活动状态同步
func (c *Client) EnqueuePromotionSyncStatus() error {
	task, err := NewPromotionSyncStatusTask()
	if err != nil {
		return err
	}
	return c.enqueueJob(task)
}

func (c *Client) enqueueJob(task *asynq.Task) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	err := c.enqueue(task, asynq.Queue(DefaultQueue), asynq.Unique(jobUniqueWindow))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func (c *Client) enqueue(task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return err
	}
	logger.Debugw("queue_task_enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

// BuildServerConfig 生成 worker 服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	queues := map[string]int{DefaultQueue: 3, EventsQueue: 1}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return BuildRedisOpt(cfg), asynq.Config{
		Concurrency:     concurrency,
		Queues:          queues,
		ShutdownTimeout: 10 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warnw("queue_task_failed",
				"type", task.Type(),
				"retry", retried,
				"max_retry", maxRetry,
				"error", err,
			)
		}),
	}
}

// BuildRedisOpt 生成 asynq Redis 连接配置
func BuildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
