package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "media_share_service/cmd/media_service/docs" // 引入 Swagger 文档
	"media_share_service/internal/media/api/handlers"
	"media_share_service/internal/media/api/router"
	"media_share_service/internal/media/app"
	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
	"media_share_service/internal/media/repository"
	"media_share_service/pkg/config"
	"media_share_service/pkg/database"
	"media_share_service/pkg/logger"
	testtool "media_share_service/pkg/test_tool"
	"media_share_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "check the local grpc health service and exit")
	flag.Parse()

	logger.Log = logger.Initialize(config.EnvConfig.MediaService, config.EnvConfig.MediaServiceLogPath)
	cfg := config.LoadConfig[config.Media](config.EnvConfig.MediaService, config.EnvConfig.MediaServiceYAMLPath)
	cfg.ApplyDefaults()

	if *healthcheck {
		os.Exit(runHealthcheck(cfg))
	}

	token.SetSecret(cfg.JWTSecret)
	testtool.StartPprof()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. engine (lazy load, 第一次使用才載入)
	loader := engine.NewLoader(newBackend(cfg.Engine))
	session := engine.NewTranscodeSession(loader, cfg.Engine.OperationTimeout)
	logger.Log.Info("engine configured", zap.String("backend", loader.Backend()))

	// 2. object storage
	storage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Unable to connect to object storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	// 3. PostgreSQL: media_clips 用 pgx, public_videos 用 gorm
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	pgConn := database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	clipRepo := repository.NewClipRepository(pool)
	if err := clipRepo.EnsureSchema(ctx); err != nil {
		logger.Log.Fatal("media_clips schema failed", zap.Error(err))
	}

	gormDB, err := database.NewPGConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm connection", zap.Error(err))
	}
	publishRepo := repository.NewPublishRepository(gormDB)
	if err := publishRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("資料表遷移失敗", zap.Error(err))
	}

	// 4. Mongo (operation log)
	mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongoDB, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    mongoURI,
		RetryCount:    cfg.Mongo.RetryCount,
		RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
	}, cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries", zap.Error(err))
	}
	defer mongoDB.Close(context.Background())

	// 5. Redis (job status)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 6. RabbitMQ (merge queue)
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("RabbitMQ 連線失敗", zap.Error(err))
	}
	defer rabbitConn.Close()

	publishChannel, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		logger.Log.Fatal("取得 RabbitMQ Channel 失敗", zap.Error(err))
	}
	defer publishChannel.Close()

	queue := database.NewRabbitRepository(publishChannel)
	if err := queue.DeclareQueue(domain.QueueName); err != nil {
		logger.Log.Fatal("Queue Declare failed", zap.Error(err))
	}

	// consumer 使用獨立的 channel, prefetch 不影響 publish
	consumeChannel, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		logger.Log.Fatal("取得 RabbitMQ Channel 失敗", zap.Error(err))
	}
	defer consumeChannel.Close()

	// 7. Kafka (publish event), 沒設定 broker 就不送
	var events database.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("Kafka Writer 建立失敗", zap.Error(err))
		}
		events = database.NewKafkaPublisher(kafkaWriter)
		defer events.Close()
	}

	// 8. use case
	pipeline := app.NewPipeline(session, app.NewClipFetcher(storage, cfg.Engine.OperationTimeout, cfg.Engine.FetchAllowedHosts))
	useCase := app.NewMediaUseCase(app.Dependencies{
		Pipeline:    pipeline,
		Storage:     storage,
		ClipRepo:    clipRepo,
		PublishRepo: publishRepo,
		OpLog:       repository.NewMongoOpLogRepository(mongoDB.Database),
		Jobs:        database.NewRedisRepositoryWithClient[domain.JobStatus](redisClient),
		Queue:       queue,
		Events:      events,
		JobTTL:      cfg.Redis.JobTTL,
	})

	consumer := app.NewConsumer(consumeChannel, useCase, domain.QueueName)
	go func() {
		if err := consumer.StartConsumer(ctx); err != nil {
			logger.Log.Error("consumer stopped", zap.Error(err))
			stop()
		}
	}()

	// 9. gRPC
	grpcServer, healthServer := app.NewGRPC(useCase)
	lis, err := net.Listen("tcp", cfg.IP+":"+cfg.GRPCPort)
	if err != nil {
		logger.Log.Fatal("grpc listen failed", zap.Error(err))
	}
	go func() {
		if err := app.ServeGRPC(grpcServer, lis); err != nil {
			logger.Log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	// 10. Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Engine.MaxUploadBytes) * 3,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.MediaServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	router.RegisterRoutes(r,
		handlers.NewMediaHandler(useCase, cfg.Engine.MaxUploadBytes),
		handlers.NewJobWSHandler(useCase, time.Second),
	)

	go func() {
		if err := r.Listen(":" + cfg.Port); err != nil {
			logger.Log.Error("Server failed to start", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	healthServer.Shutdown()
	if err := r.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Log.Warn("fiber shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := loader.Close(shutdownCtx); err != nil {
		logger.Log.Warn("engine close", zap.Error(err))
	}
	logger.Log.Sync()
}

func newBackend(c config.EngineConfig) engine.Backend {
	if c.Kind == "wasm" {
		return engine.NewWasmBackend(c.CoreURL, c.ScratchDir)
	}
	return engine.NewNativeBackend(c.Binary, c.ScratchDir)
}

func newStorage(ctx context.Context, c config.StorageConfig) (database.ObjectStorage, error) {
	switch c.Backend {
	case "s3":
		endpoint := ""
		if c.Host != "" {
			scheme := "http"
			if c.UseSSL {
				scheme = "https"
			}
			endpoint = fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
		}
		return database.NewS3Client(ctx, database.S3Connection{
			Endpoint:      endpoint,
			Region:        c.Region,
			User:          c.User,
			Password:      c.Password,
			BucketName:    c.BucketName,
			PublicBaseURL: c.PublicBaseURL,
		})
	default:
		return database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      fmt.Sprintf("%s:%d", c.Host, c.Port),
			User:          c.User,
			Password:      c.Password,
			BucketName:    c.BucketName,
			UseSSL:        c.UseSSL,
			PublicBaseURL: c.PublicBaseURL,
			RetryCount:    c.RetryCount,
			RetryInterval: time.Duration(c.RetryInterval),
		})
	}
}

// runHealthcheck docker HEALTHCHECK 使用, 0 = SERVING
func runHealthcheck(cfg config.Media) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, err := database.CreateGRPCClient(ctx, "127.0.0.1:"+cfg.GRPCPort)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: app.GRPCServiceName})
	if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
		fmt.Fprintln(os.Stderr, "not serving", err)
		return 1
	}
	return 0
}
