package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"surveyengine/internal/chatlog"
	"surveyengine/internal/checkpoint"
	"surveyengine/internal/config"
	"surveyengine/internal/dispatcher"
	"surveyengine/internal/engine"
	"surveyengine/internal/middleware"
	"surveyengine/internal/oracle"
	"surveyengine/internal/repository/postgres"
	chatlogpg "surveyengine/internal/repository/postgres/chatlog"
	"surveyengine/internal/repository/postgres/templatestore"
	"surveyengine/internal/seeddata"
	"surveyengine/internal/template"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment != "prod" {
		logLevel = slog.LevelDebug
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.Environment == "prod" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.MaxLogFiles)
		if err != nil {
			log.Fatalf("setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"checkpoint_backend", cfg.CheckpointBackend,
		"chatlog_backend", cfg.ChatLogBackend,
	)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("create connection pool: %v", err)
		}
		defer pool.Close()
	}
	tables := postgres.NewTableNames(cfg.TablePrefix)

	checkpointStore, err := buildCheckpointStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build checkpoint store: %v", err)
	}

	chatStore, err := buildChatLogStore(cfg, pool, tables, logger)
	if err != nil {
		log.Fatalf("build chat log store: %v", err)
	}

	templateStore, err := buildTemplateStore(cfg, pool, tables, logger)
	if err != nil {
		log.Fatalf("build template store: %v", err)
	}

	resolver := template.NewResolver(templateStore)
	mockOracle := oracle.NewLoremOracle(cfg.OracleMinWords, cfg.OracleMaxWords)
	evaluator := engine.NewConditionEvaluator(mockOracle)
	executor := engine.NewExecutor(
		mockOracle,
		evaluator,
		checkpointStore,
		chatStore,
		engine.WithStreamPacing(cfg.StreamWordsPerChunk, cfg.StreamChunkDelay),
		engine.WithLogger(logger),
	)

	d := dispatcher.New(resolver, executor, checkpointStore, chatStore, templateStore, cfg.SSEKeepAliveInterval, logger)

	mux := http.NewServeMux()
	d.Routes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSOrigins)(handler)
	handler = middleware.Recovery(logger)(handler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildCheckpointStore selects the Checkpoint Store backend: "redis"
// dials a single node or, given more than one REDIS_NODES entry, a
// cluster — both satisfy redis.UniversalClient so RedisStore needs no
// branching. "memory" is the local/test default.
func buildCheckpointStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (checkpoint.Store, error) {
	if cfg.CheckpointBackend != "redis" {
		return checkpoint.NewInMemoryStore(cfg.CheckpointTTL), nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.RedisNodes,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	store := checkpoint.NewRedisStore(client, cfg.TablePrefix, cfg.CheckpointTTL)
	if err := store.Ping(ctx); err != nil {
		logger.Warn("redis ping failed at startup, continuing anyway", "error", err)
	}
	return store, nil
}

func buildChatLogStore(cfg *config.Config, pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) (chatlog.Store, error) {
	if cfg.ChatLogBackend == "postgres" {
		return chatlogpg.New(pool, tables, logger), nil
	}
	return chatlog.NewFileStore(cfg.ChatLogPath)
}

func buildTemplateStore(cfg *config.Config, pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) (template.AdminStore, error) {
	if cfg.ChatLogBackend == "postgres" { // prod always pairs relational chatlog with relational templates
		return templatestore.New(pool, tables, logger), nil
	}
	templates, hosts, err := seeddata.Load()
	if err != nil {
		return nil, err
	}
	return template.NewMemoryStore(templates, hosts), nil
}
