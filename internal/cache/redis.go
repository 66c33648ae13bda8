package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "loyalty"

var (
	client    *redis.Client
	keyPrefix = defaultKeyPrefix
)

// windowScript 固定窗口计数：首次命中设置过期时间，返回 {计数, 剩余秒数}
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// InitRedis 初始化 Redis，未启用时缓存与限流均为空操作
func InitRedis(cfg *config.RedisConfig) error {
	client = nil
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
		keyPrefix = prefix
	}

	c := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("ping redis %s: %w", c.Options().Addr, err)
	}
	client = c
	return nil
}

// Enabled 判断缓存是否可用
func Enabled() bool {
	return client != nil
}

// Close 关闭连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := client.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, buildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return client.Del(ctx, buildKey(key)).Err()
}

// WindowCounter 基于 Redis 的固定窗口计数器
type WindowCounter struct{}

// Hit 累加一次命中，返回窗口内计数与窗口剩余时长
func (WindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if !Enabled() {
		return 0, 0, errors.New("redis disabled")
	}
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	values, err := windowScript.Run(ctx, client, []string{buildKey("ratelimit:" + key)}, seconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected window reply: %v", values)
	}
	return values[0], time.Duration(values[1]) * time.Second, nil
}

func buildKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return keyPrefix
	}
	return keyPrefix + ":" + key
}
