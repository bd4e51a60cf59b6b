// Package tutor wires the tutor RAG service together.
package tutor

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"gorm.io/gorm"

	"github.com/kart-io/tutor-x/internal/tutor/biz"
	"github.com/kart-io/tutor-x/internal/tutor/handler"
	"github.com/kart-io/tutor-x/internal/tutor/metrics"
	"github.com/kart-io/tutor-x/internal/tutor/router"
	"github.com/kart-io/tutor-x/internal/tutor/store"
	"github.com/kart-io/tutor-x/pkg/component/postgres"
	"github.com/kart-io/tutor-x/pkg/component/redis"
	"github.com/kart-io/tutor-x/pkg/component/sqlite"
	"github.com/kart-io/tutor-x/pkg/infra/app"
	"github.com/kart-io/tutor-x/pkg/infra/pool"
	"github.com/kart-io/tutor-x/pkg/infra/server"
	httpserver "github.com/kart-io/tutor-x/pkg/infra/server/transport/http"
	"github.com/kart-io/tutor-x/pkg/infra/tracing"
	"github.com/kart-io/tutor-x/pkg/llm"
	// 导入模型供应商以自动注册
	_ "github.com/kart-io/tutor-x/pkg/llm/cohere"
	_ "github.com/kart-io/tutor-x/pkg/llm/gemini"
	_ "github.com/kart-io/tutor-x/pkg/llm/openai"
	"github.com/kart-io/tutor-x/pkg/llm/resilience"
	cacheopts "github.com/kart-io/tutor-x/pkg/options/cache"
	databaseopts "github.com/kart-io/tutor-x/pkg/options/database"
	httpopts "github.com/kart-io/tutor-x/pkg/options/http"
	llmopts "github.com/kart-io/tutor-x/pkg/options/llm"
	logopts "github.com/kart-io/tutor-x/pkg/options/logger"
	ragopts "github.com/kart-io/tutor-x/pkg/options/rag"
	tracingopts "github.com/kart-io/tutor-x/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "tutor-rag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	DatabaseOptions  *databaseopts.Options
	CacheOptions     *cacheopts.Options
	TracingOptions   *tracingopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RerankOptions    *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	ShutdownTimeout  time.Duration
}

// Server represents the tutor RAG server.
type Server struct {
	srv     *server.Manager
	http    *httpserver.Server
	workers *pool.Pool
	closers []func()
}

// NewServer initializes and returns a new Server instance. Resources opened
// before a failing step are released before returning.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	printBanner(cfg)

	s := &Server{}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting tutor RAG service...")

	// 2. 初始化链路追踪
	tracer, err := tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.closers = append(s.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	})

	// 3. 初始化数据库
	db, dialect, dbCheck, err := s.openDatabase(ctx, cfg.DatabaseOptions)
	if err != nil {
		return nil, err
	}
	logger.Infow("Database initialized", "driver", cfg.DatabaseOptions.Driver)

	// 4. 初始化 Store 层
	datastore, err := store.New(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if cfg.DatabaseOptions.AutoMigrate {
		if err := datastore.AutoMigrate(ctx, cfg.RAGOptions.EmbeddingDim); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Infow("Database migrated", "embedding_dim", cfg.RAGOptions.EmbeddingDim)
	}

	// 5. 初始化模型供应商
	embedConfig := cfg.EmbeddingOptions.ToConfigMap()
	embedConfig[llm.ConfigDimensions] = cfg.RAGOptions.EmbeddingDim
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, embedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	rerankProvider, err := llm.NewRerankProvider(cfg.RerankOptions.Provider, cfg.RerankOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rerank provider: %w", err)
	}
	logger.Infow("Rerank provider initialized",
		"provider", cfg.RerankOptions.Provider,
		"model", cfg.RerankOptions.Model,
	)

	// 6. 初始化 Redis 缓存（失败时降级为无缓存）
	checks := map[string]router.HealthCheck{"database": dbCheck}
	if cfg.CacheOptions.Enabled {
		redisClient, err := redis.New(ctx, cfg.CacheOptions.Redis)
		if err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		} else {
			s.closers = append(s.closers, func() { _ = redisClient.Close() })
			embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient.Client(), &llm.EmbeddingCacheConfig{
				TTL:        cfg.CacheOptions.TTL,
				KeyPrefix:  cfg.CacheOptions.KeyPrefix,
				Model:      cfg.EmbeddingOptions.Model,
				Dimensions: cfg.RAGOptions.EmbeddingDim,
			})
			checks["redis"] = redisClient.Ping
			logger.Infow("Redis cache initialized",
				"addr", cfg.CacheOptions.Redis.Addr(),
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 7. 初始化 Biz 层
	workers, err := pool.NewPool("reembed", pool.DefaultConfig(cfg.RAGOptions.ReembedWorkers))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker pool: %w", err)
	}
	s.workers = workers

	tutorMetrics := metrics.GetTutorMetrics()
	svcConfig := serviceConfig(cfg.RAGOptions)
	svcConfig.Metrics = tutorMetrics

	timeout := cfg.RAGOptions.ProviderTimeout
	tutorService, err := biz.NewTutorService(
		datastore,
		resilience.GuardEmbedding(embedProvider, timeout),
		resilience.GuardRerank(rerankProvider, timeout),
		resilience.GuardChat(chatProvider, timeout),
		workers,
		svcConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tutor service: %w", err)
	}
	logger.Infow("Tutor service initialized",
		"cache.enabled", cfg.CacheOptions.Enabled,
		"rag.top_k", cfg.RAGOptions.TopK,
		"rag.rerank_top_n", cfg.RAGOptions.RerankTopN,
	)

	// 8. 初始化服务器并注册路由
	s.http = httpserver.NewServer(cfg.HTTPOptions)
	router.Register(s.http.Engine(),
		handler.NewTutorHandler(tutorService),
		handler.NewMetricsHandler(tutorMetrics),
		checks,
	)

	s.srv = server.NewManager(cfg.ShutdownTimeout)
	s.srv.AddServer(s.http)

	logger.Info("Tutor RAG service is ready")
	return s, nil
}

// openDatabase connects the configured driver and registers its closer.
func (s *Server) openDatabase(ctx context.Context, opts *databaseopts.Options) (*gorm.DB, store.Dialect, router.HealthCheck, error) {
	switch opts.Driver {
	case databaseopts.DriverSQLite:
		client, err := sqlite.New(ctx, opts.SQLitePath, opts.Postgres.LogLevel)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		return client.DB(), store.DialectSQLite, client.Ping, nil
	default:
		client, err := postgres.New(ctx, opts.Postgres)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		if err := client.EnsureVectorExtension(ctx); err != nil {
			return nil, "", nil, err
		}
		return client.DB(), store.DialectPostgres, client.Ping, nil
	}
}

func serviceConfig(o *ragopts.Options) *biz.ServiceConfig {
	return &biz.ServiceConfig{
		ChunkSize:      o.ChunkSize,
		ChunkOverlap:   o.ChunkOverlap,
		EmbeddingDim:   o.EmbeddingDim,
		RerankTopN:     o.RerankTopN,
		AnswerLanguage: o.AnswerLanguage,
		FrontendURL:    o.FrontendURL,
		WordsPerMinute: o.WordsPerMinute,
		RetrieverConfig: &biz.RetrieverConfig{
			TopK:          o.TopK,
			MinSimilarity: o.MinSimilarity,
		},
	}
}

// Addr returns the HTTP listen address.
func (s *Server) Addr() string {
	return s.http.Addr()
}

// Run starts the server and blocks until ctx is cancelled or the HTTP
// server fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		select {
		case err := <-s.http.Errors():
			serveErr <- err
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.srv.Run(ctx); err != nil {
		return err
	}
	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// close releases resources in reverse order of acquisition.
func (s *Server) close() {
	if s.workers != nil {
		s.workers.Release()
		s.workers = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Database: %s\n", cfg.DatabaseOptions.Driver)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Rerank: %s (%s)\n", cfg.RerankOptions.Provider, cfg.RerankOptions.Model)
}
