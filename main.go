package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"community-service/internal/config"
	"community-service/internal/conversations"
	"community-service/internal/db"
	"community-service/internal/handlers"
	"community-service/internal/logger"
	"community-service/internal/middleware"
	"community-service/internal/observability"
	"community-service/internal/rabbitmq"
	"community-service/internal/realtime"
	"community-service/internal/repositories"
	"community-service/internal/session"
	"community-service/internal/telemetry"
	"community-service/internal/ws"
)

const serviceName = "community-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Environment == "development")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		logg.Warnw("tracing disabled", "error", err)
	} else {
		defer shutdownTracing(ctx)
	}

	database, err := db.Connect(cfg.DatabaseDSN, logg)
	if err != nil {
		logg.Fatalw("failed to connect to db", "error", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logg)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment, logg)

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logg.Warnw("ws event publishing disabled", "error", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	userRepo := repositories.NewUserRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	tokens := session.NewTokens(cfg.JWTSecret)
	sessionStore := session.NewStore(userRepo, tokens, logg)

	broker := realtime.NewBroker()
	index := conversations.NewIndex(groupRepo, messageRepo)

	sessionHandler := handlers.NewSessionHandler(sessionStore, userRepo, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, audit)
	chatHandler := handlers.NewChatHandler(groupRepo, messageRepo, userRepo, broker, audit, cfg.MessageMaxLength)
	conversationHandler := handlers.NewConversationHandler(index)
	profileHandler := handlers.NewProfileHandler(userRepo, audit)
	screenWS := ws.NewChatScreenHandler(broker, groupRepo, userRepo, messageRepo, sessionStore, cfg.MessageMaxLength, logg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(sessionStore)

	router.POST("/auth/signup", sessionHandler.SignUp)
	router.POST("/auth/signin", sessionHandler.SignIn)
	router.POST("/auth/signout", authMiddleware, sessionHandler.SignOut)
	router.GET("/auth/session", authMiddleware, sessionHandler.GetSession)

	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/joined", authMiddleware, groupHandler.ListJoinedGroups)
	router.POST("/groups/:group_id/join", authMiddleware, groupHandler.JoinGroup)
	router.GET("/groups/:group_id/messages", authMiddleware, chatHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", authMiddleware, chatHandler.PostGroupMessage)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)

	router.GET("/profile", authMiddleware, profileHandler.GetProfile)
	router.PUT("/profile", authMiddleware, profileHandler.UpdateProfile)

	router.GET("/ws/groups/:group_id", screenWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	logg.Infow("starting server",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"amqp_mode", rabbitmq.PublisherMode(publisher),
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		logg.Fatalw("server error", "error", err)
	}
}
