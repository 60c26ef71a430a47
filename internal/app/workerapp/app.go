package workerapp

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/config"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/jobs/queuemaint"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
	queuesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/queue"
)

// App runs the background maintenance worker: an asynq server consuming queue
// upkeep tasks plus a scheduler that enqueues them on fixed intervals.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	postgres  *pgxpool.Pool
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"maintenance": 1,
		},
	})

	queueRepo := pgrepo.NewQueueRepo(pool)
	queueService := queuesvc.NewService(queuesvc.Dependencies{
		Directory:   pgrepo.NewDirectoryRepo(pool),
		Preferences: pgrepo.NewPreferenceRepo(pool),
		Swipes:      pgrepo.NewSwipeRepo(pool),
		Queue:       queueRepo,
	}, queuesvc.Config{
		QueueSize:            cfg.Matching.QueueSize,
		QueueTTL:             cfg.Matching.QueueTTL,
		DefaultMinAge:        cfg.Matching.DefaultMinAge,
		DefaultMaxAge:        cfg.Matching.DefaultMaxAge,
		DefaultMaxDistanceKM: cfg.Matching.DefaultMaxDistance,
		ActiveWithin:         cfg.Matching.ActiveWithin,
	})

	job := queuemaint.New(queueRepo, queueRepo, queueService, cfg.Worker.PrewarmFloor, log)

	mux := asynq.NewServeMux()
	job.Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Worker.PurgeInterval),
		asynq.NewTask(queuemaint.TaskPurgeExpired, nil),
		asynq.Queue("maintenance"),
	); err != nil {
		return nil, fmt.Errorf("register purge schedule: %w", err)
	}
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Worker.PrewarmInterval),
		asynq.NewTask(queuemaint.TaskPrewarm, nil),
		asynq.Queue("maintenance"),
	); err != nil {
		return nil, fmt.Errorf("register prewarm schedule: %w", err)
	}

	return &App{
		cfg:       cfg,
		logger:    log,
		postgres:  pool,
		server:    server,
		scheduler: scheduler,
		mux:       mux,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("worker started",
		zap.Duration("purge_interval", a.cfg.Worker.PurgeInterval),
		zap.Duration("prewarm_interval", a.cfg.Worker.PrewarmInterval),
	)

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	return a.server.Run(a.mux)
}

func (a *App) Shutdown() {
	a.scheduler.Shutdown()
	a.server.Shutdown()
	if a.postgres != nil {
		a.postgres.Close()
	}
}
