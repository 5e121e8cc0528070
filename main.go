package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/example/derm-api/internal/analyse"
	"github.com/example/derm-api/internal/assets"
	"github.com/example/derm-api/internal/auth"
	"github.com/example/derm-api/internal/gallery"
	"github.com/example/derm-api/internal/handlers"
	"github.com/example/derm-api/internal/history"
	"github.com/example/derm-api/internal/inference"
	"github.com/example/derm-api/internal/knowledge"
	"github.com/example/derm-api/internal/logging"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		ort.SetSharedLibraryPath(lib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		logger.Fatal("failed to initialize ONNX runtime", zap.Error(err))
	}
	defer ort.DestroyEnvironment()

	db := initDatabase(ctx, logger)

	conditionStore := knowledge.NewGormStore(db)
	if err := conditionStore.AutoMigrate(ctx); err != nil {
		logger.Fatal("knowledge store migration failed", zap.Error(err))
	}
	histories := history.NewRepository(db)
	if err := histories.AutoMigrate(ctx); err != nil {
		logger.Fatal("history migration failed", zap.Error(err))
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, logger)

	cachedStore := knowledge.NewCachedStore(
		conditionStore,
		knowledge.NewRedisCache(redisClient),
		time.Hour,
		logger,
	)

	objectStore := initObjectStore(ctx, logger)
	galleryResolver := gallery.NewResolver(objectStore, getEnv("GALLERY_NAMESPACE", "skin"), logger)

	modelPath, labelsPath := resolveModelAssets(logger)
	sessions := inference.NewSessionCache(
		inference.NewONNXEngine(logger),
		modelPath,
		labelsPath,
		logger,
	)

	service := analyse.NewService(sessions, cachedStore, galleryResolver, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.MaxMultipartMemory = handlers.MaxUploadSize

	authMiddleware := auth.JWTMiddleware(getEnv("JWT_SECRET", ""))
	handler := handlers.NewHandler(service, histories, objectStore, logger)
	handlers.RegisterRoutes(router, handler, authMiddleware)

	server := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	logger.Info("derm-api listening", zap.String("addr", server.Addr))
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initDatabase(ctx context.Context, zapLogger *zap.Logger) *gorm.DB {
	dsn := getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=derm port=5432 sslmode=disable")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, zapLogger *zap.Logger) *redis.Client {
	addr := getEnv("REDIS_ADDR", "redis:6379")
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func initObjectStore(ctx context.Context, zapLogger *zap.Logger) *gallery.S3Store {
	bucket := os.Getenv("AWS_S3_BUCKET")
	if bucket == "" {
		zapLogger.Fatal("AWS_S3_BUCKET is not configured")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		zapLogger.Fatal("failed to load AWS configuration", zap.Error(err))
	}
	return gallery.NewS3Store(s3.NewFromConfig(cfg), bucket)
}

// resolveModelAssets locates the model and class-label files. Missing assets
// are logged but not fatal here: the session cache reports the failure on the
// first analyse call and retries once the assets appear.
func resolveModelAssets(zapLogger *zap.Logger) (string, string) {
	modelPath, err := assets.Resolve(getEnv("MODEL_FILE", "best_model.onnx"))
	if err != nil {
		zapLogger.Warn("model asset not found at startup", zap.Error(err))
		modelPath = getEnv("MODEL_FILE", "best_model.onnx")
	}
	labelsPath, err := assets.Resolve(getEnv("CLASSES_FILE", "classes.json"))
	if err != nil {
		zapLogger.Warn("class labels not found at startup", zap.Error(err))
		labelsPath = getEnv("CLASSES_FILE", "classes.json")
	}
	return modelPath, labelsPath
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
