package queuemaint

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TaskPurgeExpired = "queue:purge_expired"
	TaskPrewarm      = "queue:prewarm"

	defaultPrewarmFloor = 5
	defaultPrewarmBatch = 100
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type shallowLister interface {
	ListUsersBelowFloor(ctx context.Context, floor, limit int, now time.Time) ([]int64, error)
}

type queueBuilder interface {
	Build(ctx context.Context, userID int64) error
}

// Job keeps candidate queues healthy: expired entries go away and users whose
// unseen queue dropped below the floor get a rebuilt one before they ask.
type Job struct {
	queueRepo    expiredPurger
	listRepo     shallowLister
	builder      queueBuilder
	prewarmFloor int
	prewarmBatch int
	now          func() time.Time
	logger       *zap.Logger
}

func New(queueRepo expiredPurger, listRepo shallowLister, builder queueBuilder, prewarmFloor int, logger *zap.Logger) *Job {
	if prewarmFloor <= 0 {
		prewarmFloor = defaultPrewarmFloor
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		queueRepo:    queueRepo,
		listRepo:     listRepo,
		builder:      builder,
		prewarmFloor: prewarmFloor,
		prewarmBatch: defaultPrewarmBatch,
		now:          time.Now,
		logger:       logger,
	}
}

// Register wires the job's task types into the worker mux.
func (j *Job) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskPurgeExpired, j.HandlePurgeExpired)
	mux.HandleFunc(TaskPrewarm, j.HandlePrewarm)
}

func (j *Job) HandlePurgeExpired(ctx context.Context, _ *asynq.Task) error {
	if j.queueRepo == nil {
		return nil
	}

	rows, err := j.queueRepo.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired queue entries: %w", err)
	}
	if rows > 0 {
		j.logger.Info("purged expired queue entries", zap.Int64("rows", rows))
	}
	return nil
}

func (j *Job) HandlePrewarm(ctx context.Context, _ *asynq.Task) error {
	if j.listRepo == nil || j.builder == nil {
		return nil
	}

	userIDs, err := j.listRepo.ListUsersBelowFloor(ctx, j.prewarmFloor, j.prewarmBatch, j.now().UTC())
	if err != nil {
		return fmt.Errorf("list users below queue floor: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	rebuilt := 0
	for _, userID := range userIDs {
		if err := j.builder.Build(ctx, userID); err != nil {
			j.logger.Warn("failed to prewarm queue", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		rebuilt++
	}

	j.logger.Info("prewarm pass completed", zap.Int("candidates", len(userIDs)), zap.Int("rebuilt", rebuilt))
	return nil
}
