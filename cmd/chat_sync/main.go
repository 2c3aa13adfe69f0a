package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_sync_service/internal/api/handlers"
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/internal/chat/router"
	"chat_sync_service/internal/media"
	"chat_sync_service/internal/notification"
	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"
	testtool "chat_sync_service/pkg/test_tool"
	"chat_sync_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatSync, config.EnvConfig.ChatSyncLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.ChatSync](config.EnvConfig.ChatSync, config.EnvConfig.ChatSyncYAMLPath, config.Defaults)
	if err != nil {
		logger.Log.Fatal("load config", zap.Error(err))
	}
	logger.Log.SetDebugMode(cfg.Debug)
	token.SetSecret(cfg.JWT.Secret)

	ctx := context.Background()

	// 1. Redis：mongo 後端的 append 推播與 redis 權限儲存都需要
	var redisClient *redis.Client
	if cfg.Store.Driver == config.StoreMongo || cfg.Notification.PermissionBackend == "redis" {
		redisClient = connectRedis(ctx, cfg.Redis)
		defer redisClient.Close()
	}

	// 2. RemoteStore
	remote, closeStore := openRemoteStore(ctx, cfg, redisClient)
	defer closeStore()

	// 3. 通知權限
	var perms notification.PermissionStore = notification.NewMemoryPermissionStore()
	if cfg.Notification.PermissionBackend == "redis" {
		perms = notification.NewRedisPermissionStore(redisClient)
	}
	prompter := notification.StaticPrompter(cfg.Notification.AutoGrant)

	// 4. 圖片上傳，沒有設定 endpoint 就停用
	var uploader handlers.ImageUploader
	if cfg.MinIO.Endpoint != "" {
		mc, err := database.NewMinIOConnection(ctx, database.MinIOConnection{
			Endpoint:      cfg.MinIO.Endpoint,
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.Bucket,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect minio", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
		}
		uploader = media.NewMinIOUploader(mc, cfg.MinIO.PublicURL, cfg.MinIO.PresignExpiry)
	}

	if cfg.Debug {
		testtool.StartPprof("127.0.0.1:6060")
	}

	// 5. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatSyncLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		handlers.NewRoomHandler(app.NewRoomDirectory(remote), remote, perms, prompter, uploader),
		app.NewChatWebsocketHandler(remote, perms, prompter, cfg.Sync.WindowSize),
	)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Log.Info("shutting down")
		_ = r.ShutdownWithTimeout(5 * time.Second)
	}()

	port := ":" + cfg.Port
	logger.Log.Info("chat sync listening", zap.String("port", port), zap.String("store", string(cfg.Store.Driver)))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("failed to start fiber", zap.Error(err))
	}
}

func connectRedis(ctx context.Context, c config.RedisConfig) *redis.Client {
	conn := database.RedisConnection{Addr: c.Addr, DB: c.RedisDB}
	if conn.Addr == "" {
		conn.MasterName, conn.SentinelAddrs = config.GetRedisSetting()
	}
	client, err := database.NewRedisClient(ctx, conn)
	if err != nil {
		logger.Log.Fatal("connect redis", zap.String("addr", c.Addr), zap.Error(err))
	}
	return client
}

func openRemoteStore(ctx context.Context, cfg config.ChatSync, redisClient *redis.Client) (domain.RemoteStore, func()) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
		mongo, err := database.NewMongoDB(ctx,
			database.Connection{
				ConnectStr:    uri,
				RetryCount:    cfg.MongoSQL.RetryCount,
				RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
			},
			cfg.MongoSQL.Database)
		if err != nil {
			logger.Log.Fatal("Unable to connect to mongoDB database after retries",
				zap.String("host", cfg.MongoSQL.Host),
				zap.Error(err),
			)
		}
		store, err := repository.NewMongoRemoteStore(ctx, mongo.Database, repository.NewRedisPubSub(redisClient))
		if err != nil {
			logger.Log.Fatal("init mongo store", zap.Error(err))
		}
		return store, func() { _ = mongo.Close(context.Background()) }

	case config.StorePostgres:
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
		pool, err := database.NewDatabaseConnection(ctx, database.Connection{
			ConnectStr:    dsn,
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to postgres after retries",
				zap.String("host", cfg.PostgreSQL.Host),
				zap.Error(err),
			)
		}
		store, err := repository.NewPostgresRemoteStore(ctx, pool)
		if err != nil {
			logger.Log.Fatal("init postgres store", zap.Error(err))
		}
		return store, pool.Close

	default:
		logger.Log.Info("using in-memory store, nothing is persisted")
		return repository.NewMemoryRemoteStore(), func() {}
	}
}
