package redis

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
)

// NewClient 初始化 Redis 客户端并做一次 Ping 探活。
// 变更订阅通道（realtime）和热点订单缓存共用同一个客户端。
func NewClient(cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
