package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/infra/memory"
	"quiz-sync-service/internal/infra/postgres"
	"quiz-sync-service/internal/infra/rabbit"
	infraredis "quiz-sync-service/internal/infra/redis"
	"quiz-sync-service/internal/logging"
	transport "quiz-sync-service/internal/transport/http"
)

// deps is the wired object graph shared by every subcommand.
type deps struct {
	cfg      config.Config
	log      *slog.Logger
	conn     app.Connectivity
	services transport.Services
	closers  []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func loadDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return buildDeps(ctx, cfg)
}

// buildDeps wires Postgres as the remote store when configured and Redis as
// the local store when configured. Anything left unconfigured runs in memory.
func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{
		cfg: cfg,
		log: logging.New(cfg.LogFormat(), cfg.Log.Level),
	}
	pingTimeout := config.Duration(cfg.Sync.PingTimeout, 2*time.Second)
	health := make(map[string]app.Connectivity)

	var (
		scoreRepo app.ScoreRepository
		userRepo  app.UserRepository
		classRepo app.ClassRepository
		chatRepo  app.ChatRepository
	)
	if cfg.Postgres.URL != "" {
		applied, err := postgres.Migrate(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		if len(applied) > 0 {
			d.log.Info("migrations applied", "migrations", applied)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		d.closers = append(d.closers, pool.Close)
		scoreRepo = postgres.NewScoreRepository(pool)
		userRepo = postgres.NewUserRepository(pool)
		classRepo = postgres.NewClassRepository(pool)
		chatRepo = postgres.NewChatRepository(pool)
		d.conn = postgres.NewConnectivity(pool, pingTimeout)
	} else {
		db := memory.NewDatabase()
		scoreRepo = memory.NewScoreRepository(db)
		userRepo = memory.NewUserRepository(db)
		classRepo = memory.NewClassRepository(db)
		chatRepo = memory.NewChatRepository(db)
		d.conn = memory.NewConnectivity(true)
	}
	health["remote"] = d.conn

	var local app.LocalStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { client.Close() })
		local = infraredis.NewLocalStore(client, cfg.Redis.Prefix)
		health["local"] = infraredis.NewConnectivity(client, pingTimeout)
	} else {
		local = memory.NewLocalStore()
	}

	var opts []app.ScoreOption
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbit.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, func() { pub.Close() })
		opts = append(opts, app.WithPublisher(pub))
	}

	scores := app.NewScoreService(scoreRepo, local, d.conn, d.log, opts...)
	classes := app.NewClassService(classRepo, userRepo, d.log)
	d.services = transport.Services{
		Scores:      scores,
		Leaderboard: app.NewLeaderboardService(scoreRepo, userRepo),
		Classes:     classes,
		Chat:        app.NewChatService(chatRepo, local, d.conn, d.log),
		Users:       app.NewUserService(userRepo),
		State:       app.NewAppState(local, scores, classes, d.log),
		Health:      health,
	}
	return d, nil
}
