// Package cache is an optional redis layer for rebuildable read surfaces.
// Everything here is best-effort: with no redis configured, or redis down,
// callers fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"refmart/config"
	"refmart/logger"
	"refmart/models"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

func Init(cfg *config.RedisConfig) {
	if cfg == nil || cfg.Addr == "" {
		logger.Info("redis not configured, progress cache disabled")
		return
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		logger.Warnf("redis unreachable, progress cache disabled: %v", err)
		return
	}

	client = c
	logger.Info("connected to redis")
}

func progressKey(accountID uint, pool models.PoolType) string {
	return fmt.Sprintf("refmart:progress:%d:%s", accountID, pool)
}

func GetProgress(accountID uint, pool models.PoolType) (*models.MatrixProgress, bool) {
	if client == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	raw, err := client.Get(ctx, progressKey(accountID, pool)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.MatrixProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func SetProgress(p *models.MatrixProgress) {
	if client == nil || p == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = client.Set(ctx, progressKey(p.AccountID, p.PoolType), raw, 10*time.Minute).Err()
}

func DropProgress(accountID uint, pool models.PoolType) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = client.Del(ctx, progressKey(accountID, pool)).Err()
}
