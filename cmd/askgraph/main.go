package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/kweaver00/askgraph/internal/ai"
	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/config"
	"github.com/kweaver00/askgraph/internal/db"
	"github.com/kweaver00/askgraph/internal/filestore"
	"github.com/kweaver00/askgraph/internal/handler"
	"github.com/kweaver00/askgraph/internal/ingest"
	"github.com/kweaver00/askgraph/internal/job"
	"github.com/kweaver00/askgraph/internal/middleware"
	"github.com/kweaver00/askgraph/internal/repo"
	"github.com/kweaver00/askgraph/internal/resolver"
	"github.com/kweaver00/askgraph/internal/schedule"
	"github.com/kweaver00/askgraph/internal/service"
	"github.com/kweaver00/askgraph/internal/task"
	"github.com/kweaver00/askgraph/internal/tokenizer"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askgraph",
		Short: "askgraph backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg, database)
		},
	}
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "run the answer-generation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			return runWorker(cfg, database)
		},
	}
	rootCmd.AddCommand(runCmd, workerCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, database, nil
}

func newBroker(cfg *config.Config) *task.RedisBroker {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return task.NewRedisBroker(client)
}

func newProvider(cfg *config.Config) (ai.IProvider, error) {
	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	return ai.NewProvider(cfg.AI.Provider, providerArgs)
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(database)
	graphRepo := repo.NewGraphRepo(database)
	faqRepo := repo.NewFAQRepo(database)
	chatRepo := repo.NewChatRepo(database)
	docRepo := repo.NewDocumentRepo(database)
	vectorRepo := repo.NewVectorRepo(database)

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel, cfg.AI.MaxInputChars)

	codec, err := tokenizer.NewTiktoken(cfg.Ingest.Encoding)
	if err != nil {
		return fmt.Errorf("init tokenizer: %w", err)
	}
	chunker := ingest.NewChunker(codec, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	coordinator := ingest.NewCoordinator(chunker, embedder, vectorRepo, docRepo, cfg.Ingest.BatchSize)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	broker := newBroker(cfg)
	pending := task.NewPendingRegistry()
	dispatcher := task.NewDispatcher(broker, pending)
	fanout := task.NewFanout(broker, pending)

	answers := cache.NewAnswerCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	res := resolver.New(graphRepo, faqRepo, answers, chatRepo, embedder, vectorRepo, dispatcher, cfg.Search.TopK)

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	graphService := service.NewGraphService(graphRepo)
	faqService := service.NewFAQService(faqRepo, answers)
	chatService := service.NewChatService(chatRepo)
	documentService, err := service.NewDocumentService(docRepo, vectorRepo, store, coordinator, 2)
	if err != nil {
		return fmt.Errorf("init document service: %w", err)
	}
	defer documentService.Close()

	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authService),
		Graph:        handler.NewGraphHandler(graphService),
		FAQs:         handler.NewFAQHandler(faqService),
		Chat:         handler.NewChatHandler(chatService, res, pending),
		Documents:    handler.NewDocumentHandler(documentService),
		WS:           handler.NewWSHandler(res, fanout),
		JWTSecret:    []byte(cfg.JWTSecret),
		UploadWindow: time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIngestReaperJob(docRepo, 60), "*/10 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runWorker(cfg *config.Config, database *sql.DB) error {
	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	completer := ai.NewCompleter(provider, cfg.AI.ChatModel)
	chatService := service.NewChatService(repo.NewChatRepo(database))

	worker, err := task.NewWorker(
		newBroker(cfg),
		completer,
		chatService,
		cfg.Worker.Concurrency,
		task.WithRetry(cfg.Worker.MaxRetries, time.Duration(cfg.Worker.RetryBaseSec)*time.Second),
	)
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return worker.Run(ctx)
}
