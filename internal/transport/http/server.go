package http

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsvc "career-counselor/internal/app"
	"career-counselor/internal/bootstrap"
	"career-counselor/internal/cache"
	rabbitmqClient "career-counselor/internal/platform/rabbitmq"
	"career-counselor/internal/repository"
	"career-counselor/internal/transport/http/handler"
	"career-counselor/internal/transport/http/middleware"
)

type routerDeps struct {
	ginMode        string
	logger         *zap.Logger
	jwtSecret      string
	identitySecret string

	authHandler   *handler.AuthHandler
	chatHandler   *handler.ChatHandler
	healthHandler *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config

	userRepo := repository.NewUserRepository(app.DB)
	sessionRepo := repository.NewSessionRepository(app.DB)
	messageRepo := repository.NewMessageRepository(app.DB)

	chatCfg := appsvc.ChatServiceConfig{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		Responder:   app.Counselor,
		HistoryCache: cache.NewHistoryCache(
			app.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		),
		Events:       rabbitmqClient.NewSessionEventPublisher(app.MQConn, cfg.RabbitMQ.SessionEventExchange),
		DefaultTitle: cfg.Chat.DefaultTitle,
		Logger:       app.Logger.Named("chat"),
	}
	if cfg.Chat.SingleFlightTurns {
		chatCfg.TurnGuard = cache.NewTurnLock(app.Redis, time.Duration(cfg.Redis.TurnLockTTLSeconds)*time.Second)
	}

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(chatCfg)

	return newEngine(routerDeps{
		ginMode:        cfg.App.GinMode,
		logger:         app.Logger,
		jwtSecret:      cfg.Auth.JWTSecret,
		identitySecret: cfg.Auth.IdentitySecret,
		authHandler:    handler.NewAuthHandler(authService),
		chatHandler:    handler.NewChatHandler(chatService, app.Events, int64(cfg.Chat.ResumeMaxBytes)),
		healthHandler: handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt,
			handler.DependencyCheck{Name: cfg.Database.Driver, Check: func(ctx context.Context) error {
				sqlDB, err := app.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
				return app.Redis.Ping(ctx).Err()
			}},
			handler.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error {
				if app.MQConn == nil || app.MQConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			}},
		),
	})
}

func newEngine(deps routerDeps) *gin.Engine {
	if deps.ginMode != "" {
		gin.SetMode(deps.ginMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(deps.logger), gin.Recovery())

	router.GET("/healthz", deps.healthHandler.Check)

	v1 := router.Group("/api/v1")
	requireJWT := middleware.AuthJWT(deps.jwtSecret)
	trusted := middleware.TrustedIdentity(deps.identitySecret)

	authGroup := v1.Group("/auth")
	authGroup.POST("/exchange", trusted, deps.authHandler.Exchange)
	authGroup.GET("/me", requireJWT, deps.authHandler.Me)
	authGroup.PATCH("/me", requireJWT, deps.authHandler.UpdateMe)
	authGroup.DELETE("/me", requireJWT, deps.authHandler.DeleteMe)

	v1.POST("/users", trusted, deps.authHandler.CreateUser)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(requireJWT)
	chatGroup.GET("/sessions", deps.chatHandler.ListSessions)
	chatGroup.POST("/sessions", deps.chatHandler.CreateSession)
	chatGroup.PATCH("/sessions/:id", deps.chatHandler.RenameSession)
	chatGroup.DELETE("/sessions/:id", deps.chatHandler.DeleteSession)
	chatGroup.GET("/sessions/:id/messages", deps.chatHandler.ListMessages)
	chatGroup.POST("/sessions/:id/messages", deps.chatHandler.SendMessage)
	chatGroup.POST("/sessions/:id/resume", deps.chatHandler.UploadResume)
	chatGroup.POST("/titles", deps.chatHandler.GenerateTitle)
	chatGroup.GET("/events", deps.chatHandler.Events)

	return router
}
