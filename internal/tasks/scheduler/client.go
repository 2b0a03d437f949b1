package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// RedisClientOpt builds the asynq connection options from the
// configured Redis URL.
func RedisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	clientOpt := asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
	if cfg.GetRedisTLSInsecure() && clientOpt.TLSConfig != nil {
		clientOpt.TLSConfig.InsecureSkipVerify = true
	}
	return clientOpt, nil
}

// Client enqueues trigger tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates a trigger client.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
	}, nil
}

// Close releases the underlying Redis connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueProcessBatch asks the worker to run one processing pass.
// The uniqueness window collapses bursts of triggers into one pass.
func (c *Client) EnqueueProcessBatch(ctx context.Context, reason string) error {
	task, err := NewProcessBatchTask(reason)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(10*time.Second),
	)
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}

// EnqueueCleanup asks the worker to run the retention sweep.
func (c *Client) EnqueueCleanup(ctx context.Context) error {
	task, err := NewCleanupTask()
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(30*time.Minute),
	)
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}
