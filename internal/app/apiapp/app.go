package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/config"
	s3infra "github.com/Loop-It-Project/Loop-It-sub002/internal/infra/s3"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
	redrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/redis"
	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	matchessvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/matches"
	notifysvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/notify"
	prefsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/prefs"
	queuesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/queue"
	ratesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/rate"
	swipesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/swipes"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/ws"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	pubsubRepo := redrepo.NewPubSubRepo(redisClient)

	runner := pgrepo.NewRunner(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	statsRepo := pgrepo.NewStatsRepo(pool)
	queueRepo := pgrepo.NewQueueRepo(pool)
	prefRepo := pgrepo.NewPreferenceRepo(pool)
	directoryRepo := pgrepo.NewDirectoryRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	verifier := authsvc.NewVerifier(cfg.Auth.JWTSecret)
	rateLimiter := ratesvc.NewLimiter(
		rateRepo,
		cfg.Matching.SwipeMaxPerMinute,
		cfg.Matching.SwipeMaxPer10Sec,
	)
	notifyService := notifysvc.NewService(pubsubRepo, directoryRepo, log)

	queueDeps := queuesvc.Dependencies{
		Directory:   directoryRepo,
		Preferences: prefRepo,
		Swipes:      swipeRepo,
		Queue:       queueRepo,
	}
	if s3Client != nil {
		queueDeps.PhotoSigner = s3infra.NewPhotoSigner(s3Client, cfg.S3.Bucket)
	}
	queueService := queuesvc.NewService(queueDeps, queuesvc.Config{
		QueueSize:            cfg.Matching.QueueSize,
		QueueTTL:             cfg.Matching.QueueTTL,
		DefaultMinAge:        cfg.Matching.DefaultMinAge,
		DefaultMaxAge:        cfg.Matching.DefaultMaxAge,
		DefaultMaxDistanceKM: cfg.Matching.DefaultMaxDistance,
		ActiveWithin:         cfg.Matching.ActiveWithin,
		PhotoURLTTL:          cfg.Matching.PhotoURLTTL,
	})

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Runner:      runner,
		SwipeStore:  swipeRepo,
		MatchStore:  matchRepo,
		StatsStore:  statsRepo,
		QueueStore:  queueRepo,
		Directory:   directoryRepo,
		RateLimiter: rateLimiter,
		Notifier:    notifyService,
	}, swipesvc.Config{
		DefaultMaxDistanceKM: cfg.Matching.DefaultMaxDistance,
	})

	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Runner:     runner,
		MatchStore: matchRepo,
	})

	prefsService := prefsvc.NewService(prefsvc.Dependencies{
		PreferenceStore: prefRepo,
		StatsStore:      statsRepo,
		SwipeStore:      swipeRepo,
	}, prefsvc.Config{
		DefaultMinAge:        cfg.Matching.DefaultMinAge,
		DefaultMaxAge:        cfg.Matching.DefaultMaxAge,
		DefaultMaxDistanceKM: cfg.Matching.DefaultMaxDistance,
	})

	hub := ws.NewHub(pubsubRepo, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		QueueService: queueService,
		SwipeService: swipeService,
		MatchService: matchesService,
		PrefsService: prefsService,
		Verifier:     verifier,
		Hub:          hub,
		Logger:       log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
