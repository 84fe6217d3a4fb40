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
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/tomehq/tome/internal/ai"
	"github.com/tomehq/tome/internal/config"
	"github.com/tomehq/tome/internal/db"
	"github.com/tomehq/tome/internal/embedcache"
	"github.com/tomehq/tome/internal/filestore"
	"github.com/tomehq/tome/internal/handler"
	"github.com/tomehq/tome/internal/job"
	"github.com/tomehq/tome/internal/middleware"
	"github.com/tomehq/tome/internal/rag"
	"github.com/tomehq/tome/internal/repo"
	"github.com/tomehq/tome/internal/schedule"
	"github.com/tomehq/tome/internal/service"
	"github.com/tomehq/tome/internal/vector"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tome",
		Short: "tome book question-answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run tome server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	rootCtx := context.Background()
	logutil.GetLogger(rootCtx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_collection", cfg.Vector.Collection),
		zap.String("embed_provider", cfg.AI.Embedding.Provider),
		zap.String("completion_provider", cfg.AI.Completion.Provider),
	)

	bookRepo := repo.NewBookRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	historyRepo := repo.NewChatHistoryRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	vectorClient := vector.NewClient(vector.Config{
		URL:        cfg.Vector.URL,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.Vector.Collection,
		Timeout:    time.Duration(cfg.Vector.TimeoutSecs) * time.Second,
	})
	if err := vectorClient.EnsureCollection(rootCtx, cfg.Vector.Dimension); err != nil {
		return fmt.Errorf("init vector collection: %w", err)
	}

	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embedding.Provider, cfg.AI.Embedding.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embedding.Model,
		time.Duration(cfg.AI.Embedding.TimeoutSecs)*time.Second)
	if cfg.AI.Cache.UseDB {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	if cfg.AI.Cache.LRUSize > 0 {
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.Cache.LRUSize,
			time.Duration(cfg.AI.Cache.LRUTTLSecs)*time.Second)
	}

	completionProvider, err := ai.NewCompletionProvider(cfg.AI.Completion.Provider, cfg.AI.Completion.Data)
	if err != nil {
		return fmt.Errorf("init completion provider: %w", err)
	}
	completer := ai.NewCompleter(completionProvider, cfg.AI.Completion.Model,
		time.Duration(cfg.AI.Completion.TimeoutSecs)*time.Second)

	var archive filestore.IStore
	if cfg.Archive.Type != "" {
		archive, err = filestore.New(cfg.Archive.Type, cfg.Archive.Data)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
	}

	chunker := rag.NewChunker(cfg.Chunker.MaxChars, cfg.Chunker.ChunksPerPage)
	retriever := rag.NewRetriever(embedder, vectorClient, cfg.Retrieval.TopK)
	generator := rag.NewGenerator(completer, cfg.AI.Completion.Temperature)

	ingestService := service.NewIngestService(bookRepo, chunkRepo, chunker, embedder, vectorClient, archive)
	chatService := service.NewChatService(bookRepo, sessionRepo, historyRepo, retriever, generator)

	deps := handler.RouterDeps{
		Books: handler.NewBookHandler(ingestService),
		Chat:  handler.NewChatHandler(chatService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.EmbeddingCacheCleanup != "" {
		if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.AI.Cache.MaxAgeDays), cfg.Jobs.EmbeddingCacheCleanup); err != nil {
			return err
		}
	}
	if cfg.Jobs.SessionCleanup != "" {
		if err := scheduler.AddJob(job.NewSessionCleanupJob(sessionRepo, cfg.Jobs.SessionMaxAgeDays), cfg.Jobs.SessionCleanup); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(rootCtx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(rootCtx).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(rootCtx).Info("server stopping...")
	return nil
}
