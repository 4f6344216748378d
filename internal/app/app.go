package app

import (
	"context"
	"log/slog"

	httpapp "inkwell/internal/app/http"
	"inkwell/internal/config"
	"inkwell/internal/events"
	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/repository"
	"inkwell/internal/services/auth"
	media "inkwell/internal/services/media_service"
	services "inkwell/internal/services/post_service"
	"inkwell/internal/storage/filestorage"
	redisapp "inkwell/internal/storage/redis"
	httprouters "inkwell/internal/transport/http"
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	repo       *repository.Repository
	redis      *redisapp.Client
	publisher  events.Publisher
}

// New wires every component from cfg. It panics when a required backend
// cannot be reached.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	repo, err := repository.NewRepository(ctx, cfg.DSN)
	if err != nil {
		panic(err)
	}
	if cfg.DSN == "" {
		log.Warn("no dsn configured, posts are kept in memory")
	}

	fileStorage, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL, cfg.FileStorage.MaxSize)
	if err != nil {
		panic(err)
	}

	var (
		redisClient *redisapp.Client
		locker      repository.PostLocker
	)
	if cfg.Redis.RedisAddr != "" {
		redisClient = redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err := redisClient.HealthCheck(ctx); err != nil {
			panic(err)
		}
		locker = repository.NewRedisPostLocker(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockWait)
	} else {
		locker = repository.NewLocalPostLocker(cfg.Redis.LockWait)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(log, cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			panic(err)
		}
		publisher = natsPublisher
	}

	authenticator := auth.New(log, cfg.Auth.Secret, cfg.Auth.CacheTTL)

	mediaService := media.NewMediaService(log, repo.Post, repo.Media, fileStorage)
	postService := services.NewPostService(log, repo.Post, mediaService, locker, publisher)

	routers := httprouters.NewRouter(log, postService, authenticator, repo)

	httpServer := httpapp.New(log, httpapp.Options{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, routers)
	httpServer.BuildRouters()
	if !httpServer.ServeFiles(cfg.FileStorage.BaseURL, cfg.FileStorage.BaseDir) {
		log.Info("media served from external base url", slog.String("base_url", cfg.FileStorage.BaseURL))
	}

	return &App{
		log:        log,
		HTTPServer: httpServer,
		repo:       repo,
		redis:      redisClient,
		publisher:  publisher,
	}
}

// Stop shuts the server down first, then releases the backends it used.
func (a *App) Stop(ctx context.Context) {
	if err := a.HTTPServer.Stop(ctx); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	a.publisher.Close()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis client", sl.Err(err))
		}
	}

	a.repo.Close()
}
