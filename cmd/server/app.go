package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-pass-service/internal/audit"
	"github.com/iliyamo/leave-pass-service/internal/cache"
	"github.com/iliyamo/leave-pass-service/internal/config"
	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/logging"
	"github.com/iliyamo/leave-pass-service/internal/metrics"
	"github.com/iliyamo/leave-pass-service/internal/model"
	"github.com/iliyamo/leave-pass-service/internal/queue"
	"github.com/iliyamo/leave-pass-service/internal/repository"
	"github.com/iliyamo/leave-pass-service/internal/service"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *sql.DB
	rdb     *redis.Client
	local   *cache.Local[[]model.Pass]
	audit   *audit.Async
	metrics *metrics.Metrics

	passes  *repository.PassRepo
	windows *repository.LeaveWindowRepo
	svc     *service.PassService
	engine  *service.ActivationEngine
}

// newApp opens the store, migrates it and wires the services.  withRedis
// controls whether Redis is dialed for the shared cache.
func newApp(withRedis bool) (*app, error) {
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, dialect, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, metrics: metrics.New()}
	clk := clockwork.NewRealClock()

	if withRedis {
		rdb, err := config.NewRedisClient(config.LoadRedisConfig())
		if err != nil {
			log.Warn("redis unreachable; rate limiting disabled and cache kept in process", zap.Error(err))
		}
		a.rdb = rdb
	}

	a.audit = audit.NewAsync(newRecorder(cfg, log), 1024, log)

	a.passes = repository.NewPassRepo(db, clk)
	a.windows = repository.NewLeaveWindowRepo(db, clk)
	a.svc = service.NewPassService(a.passes,
		service.WithCache(a.newCache(clk)),
		service.WithAudit(a.audit),
		service.WithMetrics(a.metrics),
		service.WithClock(clk),
		service.WithLogger(log),
	)
	a.engine = service.NewActivationEngine(a.windows, repository.NewRosterRepo(db), a.svc, cfg.Location(), log)
	return a, nil
}

func openDB(cfg config.Config) (*sql.DB, database.Dialect, error) {
	dialect, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}
	var db *sql.DB
	switch dialect {
	case database.SQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	default:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s database: %w", dialect, err)
	}
	return db, dialect, nil
}

func (a *app) newCache(clk clockwork.Clock) cache.Cache[[]model.Pass] {
	cc := config.LoadCacheConfig()
	if !cc.Enabled {
		return cache.Nop[[]model.Pass]{}
	}
	if cc.Backend == "redis" && a.rdb != nil {
		return cache.NewRedis[[]model.Pass](a.rdb, cc.Prefix, cc.TTL, a.log)
	}
	a.local = cache.NewLocal[[]model.Pass](cc.TTL, clk)
	return a.local
}

// newRecorder publishes audit events to RabbitMQ when a broker is
// configured and logs them otherwise.
func newRecorder(cfg config.Config, log *zap.Logger) audit.Recorder {
	if cfg.AMQPURL == "" {
		return audit.LogRecorder{Log: log}
	}
	return audit.QueueRecorder{Publisher: queue.NewPublisher(cfg.AMQPURL, cfg.ActivityQueue)}
}

func (a *app) close() {
	a.audit.Close()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.db.Close()
	_ = a.log.Sync()
}
