package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/nimasrn/invoice-ledger/pkg/redis"
)

const HeaderKey = "Idempotency-Key"

var (
	ErrInFlight          = errors.New("request with this idempotency key is in progress")
	ErrLockAcquireFailed = errors.New("failed to acquire idempotency lock")
)

type Config struct {
	LockTTL time.Duration

	ResponseTTL time.Duration

	LockKeyPrefix string

	ResponseKeyPrefix string
}

func DefaultConfig() Config {
	return Config{
		LockTTL:           30 * time.Second,
		ResponseTTL:       24 * time.Hour,
		LockKeyPrefix:     "idempotency:lock:",
		ResponseKeyPrefix: "idempotency:response:",
	}
}

// Response is what gets replayed to a repeated request.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Service struct {
	redis  redis.RedisAdapter
	config Config
}

func NewService(redisAdapter redis.RedisAdapter, config Config) *Service {
	return &Service{
		redis:  redisAdapter,
		config: config,
	}
}

// Begin claims key. A stored response means the request already completed
// and must be replayed; ErrInFlight means another request holds the key.
// With neither, the caller owns the key until Complete or Release.
func (s *Service) Begin(ctx context.Context, key string) (*Response, error) {
	stored, err := s.Stored(ctx, key)
	if err != nil {
		logger.Warn("Failed to read stored response", "idempotency_key", key, "error", err)
	} else if stored != nil {
		logger.Info("Replaying stored response", "idempotency_key", key)
		return stored, nil
	}

	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	acquired, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+key, lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrInFlight
	}

	logger.Debug("Idempotency lock acquired", "idempotency_key", key, "lock_ttl", s.config.LockTTL)
	return nil, nil
}

// Complete stores resp for replay and frees the key.
func (s *Service) Complete(ctx context.Context, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.config.ResponseKeyPrefix+key, b, s.config.ResponseTTL); err != nil {
		logger.Error("Failed to store response", "idempotency_key", key, "error", err)
		return fmt.Errorf("failed to store response: %w", err)
	}
	return s.Release(ctx, key)
}

// Release frees the key without storing anything, so a retry runs again.
func (s *Service) Release(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.config.LockKeyPrefix+key); err != nil {
		logger.Warn("Failed to release lock", "idempotency_key", key, "error", err)
		return err
	}
	return nil
}

func (s *Service) Stored(ctx context.Context, key string) (*Response, error) {
	b, err := s.redis.Get(ctx, s.config.ResponseKeyPrefix+key)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, nil
		}
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &resp, nil
}
