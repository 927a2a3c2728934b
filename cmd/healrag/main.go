package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/healrag/healrag/internal/ai"
	"github.com/healrag/healrag/internal/assembler"
	"github.com/healrag/healrag/internal/config"
	"github.com/healrag/healrag/internal/convstore"
	"github.com/healrag/healrag/internal/embedcache"
	"github.com/healrag/healrag/internal/extract"
	"github.com/healrag/healrag/internal/filestore"
	"github.com/healrag/healrag/internal/handler"
	"github.com/healrag/healrag/internal/index"
	"github.com/healrag/healrag/internal/job"
	"github.com/healrag/healrag/internal/middleware"
	"github.com/healrag/healrag/internal/query"
	"github.com/healrag/healrag/internal/rag"
	"github.com/healrag/healrag/internal/schedule"
	"github.com/healrag/healrag/internal/searchengine"
	"github.com/healrag/healrag/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "healrag",
		Short: "insurance plan retrieval and chat server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	var dataDir string
	var overwrite bool
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "run one ingestion pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runIndex(cfg, dataDir, overwrite)
		},
	}
	indexCmd.Flags().StringVar(&dataDir, "data", "", "local directory to upload into the file store before indexing")
	indexCmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite files already present in the store")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(serveCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
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
	return cfg, nil
}

type components struct {
	manager *ai.Manager
	engine  *query.Engine
	backend searchengine.Engine
	ingest  *service.IngestService
}

func buildAI(cfg *config.Config) (*ai.Manager, error) {
	opts := &ai.GenOptions{Temperature: cfg.AI.Temperature, TopP: cfg.AI.TopP}
	var chatters []ai.ChatterEntry
	for _, pc := range cfg.AI.Chatters {
		provider, err := ai.NewProvider(pc.Provider, pc.Args)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", pc.Provider, err)
		}
		chatters = append(chatters, ai.ChatterEntry{
			Name:    fmt.Sprintf("%s/%s", pc.Provider, pc.Model),
			Chatter: ai.NewChatter(provider, pc.Model, opts),
		})
	}
	var embedders []ai.EmbedderEntry
	for _, pc := range cfg.AI.Embedders {
		provider, err := ai.NewEmbedProvider(pc.Provider, pc.Args)
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", pc.Provider, err)
		}
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     fmt.Sprintf("%s/%s", pc.Provider, pc.Model),
			Embedder: ai.NewEmbedder(provider, pc.Model),
		})
	}

	var chatter ai.IChatter
	if len(chatters) > 0 {
		chatter = ai.NewGroupChatter(chatters)
	}
	var embedder ai.IEmbedder
	if len(embedders) > 0 {
		embedder = ai.NewGroupEmbedder(embedders)
		if cfg.AI.EmbedCacheSize > 0 {
			ttl := time.Duration(cfg.AI.EmbedCacheTTL) * time.Second
			embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.EmbedCacheSize, ttl)
		}
	}
	return ai.NewManager(chatter, embedder, ai.ManagerConfig{Timeout: cfg.AI.Timeout}), nil
}

func buildComponents(cfg *config.Config) (*components, error) {
	manager, err := buildAI(cfg)
	if err != nil {
		return nil, err
	}

	var searchArgs interface{}
	switch cfg.Search.Type {
	case "postgres":
		searchArgs = cfg.Search.Postgres
	case "bleve":
		searchArgs = cfg.Search.Bleve
	}
	backend, err := searchengine.New(cfg.Search.Type, searchArgs, searchengine.Deps{Embedder: manager})
	if err != nil {
		return nil, fmt.Errorf("init search engine: %w", err)
	}

	engine := query.New(backend, cfg.Search.IndexName,
		query.WithDefaultTop(cfg.RAG.TopN),
		query.WithProfiles("insurancePlansScoring", "insurancePlansSemantic"),
	)

	var storeArgs interface{}
	if cfg.FileStore.Type == "s3" {
		storeArgs = cfg.FileStore.S3
	} else {
		storeArgs = map[string]interface{}{"dir": cfg.FileStore.Dir}
	}
	store, err := filestore.New(cfg.FileStore.Type, storeArgs)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	var extractor extract.Service
	if cfg.Extraction.URL != "" {
		extractor = extract.NewHTTPService(cfg.Extraction.URL, time.Duration(cfg.Extraction.Timeout)*time.Second)
	}

	asm := assembler.New(assembler.Mode(cfg.Index.AssemblyMode), cfg.Index.ChunkSize)
	mgr := index.NewManager(backend,
		index.WithBatchSize(cfg.Index.BatchSize),
		index.WithRetry(time.Duration(cfg.Index.RetryDelayMS)*time.Millisecond, cfg.Index.MaxRetry),
	)
	ingest := service.NewIngestService(store, extractor, asm, mgr, cfg.Search.IndexName)

	return &components{manager: manager, engine: engine, backend: backend, ingest: ingest}, nil
}

func runIndex(cfg *config.Config, dataDir string, overwrite bool) error {
	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.backend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dataDir != "" {
		if _, _, err := comps.ingest.UploadFiles(ctx, dataDir, overwrite); err != nil {
			return fmt.Errorf("upload data dir: %w", err)
		}
	}
	report, err := comps.ingest.Run(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("ingestion finished",
		zap.Int("total", report.Total),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed))
	return nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("search_engine", cfg.Search.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.backend.Close()

	var convArgs interface{}
	if cfg.Conversation.Type == "postgres" {
		convArgs = cfg.Conversation.Postgres
	}
	conversations, err := convstore.New(cfg.Conversation.Type, convArgs)
	if err != nil {
		return fmt.Errorf("init conversation store: %w", err)
	}
	defer conversations.Close()

	history := rag.NewHistory(cfg.RAG.MaxHistory)
	orcOpts := []rag.OrcOption{rag.WithPersister(conversations)}
	if cfg.RAG.SystemPrompt != "" {
		orcOpts = append(orcOpts, rag.WithSystemPrompt(cfg.RAG.SystemPrompt))
	}
	orc := rag.NewOrchestrator(comps.engine, comps.manager, history, orcOpts...)

	searchHandler := handler.NewSearchHandler(service.NewSearchService(comps.engine))
	chatHandler := handler.NewChatHandler(service.NewRAGService(orc))
	convHandler := handler.NewConversationHandler(service.NewConversationService(conversations))
	ingestHandler := handler.NewIngestHandler(comps.ingest)

	deps := handler.RouterDeps{
		Search:        searchHandler,
		Chat:          chatHandler,
		Conversations: convHandler,
		Ingest:        ingestHandler,
		JWTSecret:     []byte(cfg.JWTSecret),
		ChatRateLimit: time.Duration(cfg.RAG.ChatRateLimitMS) * time.Millisecond,
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
	scheduled := false
	if cfg.Schedule.ReindexCron != "" {
		if err := scheduler.AddJob(job.NewReindexJob(comps.ingest), cfg.Schedule.ReindexCron); err != nil {
			return fmt.Errorf("schedule reindex: %w", err)
		}
		scheduled = true
	}
	if cfg.Schedule.CleanupCron != "" {
		pruner, ok := conversations.(interface {
			DeleteBefore(ctx context.Context, cutoff string) (int64, error)
		})
		if !ok {
			logutil.GetLogger(ctx).Warn("conversation store does not support cleanup, skipping job",
				zap.String("type", cfg.Conversation.Type))
		} else {
			maxAge := time.Duration(cfg.Conversation.RetentionDays) * 24 * time.Hour
			if err := scheduler.AddJob(job.NewConversationCleanupJob(pruner, maxAge), cfg.Schedule.CleanupCron); err != nil {
				return fmt.Errorf("schedule conversation cleanup: %w", err)
			}
			scheduled = true
		}
	}
	if scheduled {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
