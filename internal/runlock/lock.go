package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrHeld 锁已被其他运行持有
var ErrHeld = errors.New("run lock already held")

// releaseScript 只释放自己持有的锁（token 比对后删除）
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock 基于Redis的运行互斥锁，防止同一管道的并发运行互相覆盖输出。
// 锁带TTL，持有进程崩溃后自动过期。
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewLock 创建运行锁
func NewLock(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *Lock {
	return &Lock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire 获取锁，已被持有时返回 ErrHeld
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	l.logger.Info("Run lock acquired",
		zap.String("key", l.key),
		zap.Duration("ttl", l.ttl),
	)
	return nil
}

// Release 释放锁。只删除自己写入的 token，不碰后继运行的锁。
func (l *Lock) Release(ctx context.Context) error {
	deleted, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if deleted == 0 {
		l.logger.Warn("Run lock already expired or taken over", zap.String("key", l.key))
		return nil
	}
	l.logger.Info("Run lock released", zap.String("key", l.key))
	return nil
}
