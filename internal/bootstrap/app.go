package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"career-counselor/internal/ai"
	"career-counselor/internal/config"
	"career-counselor/internal/notify"
	"career-counselor/internal/pkg/logger"
	"career-counselor/internal/platform/database"
	rabbitmqClient "career-counselor/internal/platform/rabbitmq"
	redisClient "career-counselor/internal/platform/redis"
	"career-counselor/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Counselor   *ai.Counselor
	Events      *notify.Hub
	EventWorker *worker.SessionEventWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.File, cfg.App.Env == "prod")
	app := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.DB = db
	if err := database.Migrate(db); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.SessionEventExchange)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	completer, err := ai.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Counselor = ai.NewCounselor(completer)

	app.Events = notify.NewHub(notify.NewZapLogger(log.Named("notify")))
	app.EventWorker = worker.NewSessionEventWorker(app.MQConn, cfg.RabbitMQ.SessionEventExchange, app.Events, log)
	if err := app.EventWorker.Start(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("start session event worker failed: %w", err)
	}

	log.Info("bootstrap complete",
		zap.String("database", cfg.Database.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("single_flight_turns", cfg.Chat.SingleFlightTurns),
	)
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
