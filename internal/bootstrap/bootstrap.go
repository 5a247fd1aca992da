// Package bootstrap builds the adapters shared by the api, worker and
// agentctl binaries from an infra.Config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/multimodal-agent/server/internal/adapter/repo"
	"github.com/multimodal-agent/server/internal/cache"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/jobs"
	"github.com/multimodal-agent/server/internal/providers/llm"
	"github.com/multimodal-agent/server/internal/ratelimit"
	"github.com/multimodal-agent/server/internal/storage"
	"github.com/multimodal-agent/server/internal/workflow"
)

// Deps holds the process-wide adapters. Redis is nil when it could not be
// reached at startup; the cache and limiter then fail open.
type Deps struct {
	Config *infra.Config
	Logger *infra.Logger

	DB    *pgxpool.Pool
	SQL   *infra.SQLRunner
	Redis *redis.Client
	Cache *cache.Cache
	Store storage.ObjectStore

	Jobs   *repo.JobRepositoryPG
	Files  *repo.FileRepositoryPG
	Health *repo.HealthRepositoryPG
}

// Open connects Postgres (required), Redis (optional) and the object store.
func Open(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Deps, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}
	d := &Deps{Config: cfg, Logger: logger}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.DB = pool
	d.SQL = infra.NewSQLRunner(pool, *logger)
	d.Jobs = repo.NewJobRepository(d.SQL)
	d.Files = repo.NewFileRepository(d.SQL)
	d.Health = repo.NewHealthRepository(d.SQL)

	client, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; caching and rate limiting disabled")
		d.Cache = cache.New(nil, logger)
	} else {
		d.Redis = client
		d.Cache = cache.New(client, logger)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Store = store
	return d, nil
}

// OpenStore selects the object store named by STORAGE_BACKEND.
func OpenStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	case "", "filesystem":
		fsStore, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return fsStore, nil
	}
	return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
}

// Close releases the database pool and Redis client.
func (d *Deps) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// TTLPolicy returns the configured job snapshot lifetimes.
func (d *Deps) TTLPolicy() cache.TTLPolicy {
	return cache.TTLPolicy{Active: d.Config.CacheTTLActiveJob, Terminal: d.Config.CacheTTLCompletedJob}
}

// Limiter returns the request limiter. Without Redis it admits everything.
func (d *Deps) Limiter() *ratelimit.Limiter {
	var client redis.Scripter
	if d.Redis != nil {
		client = d.Redis
	}
	return ratelimit.New(client, d.Config.RateLimitRequests, d.Config.RateLimitWindow, ratelimit.WithLogger(d.Logger))
}

// Models are the three inference endpoints the workflow talks to.
type Models struct {
	Vision    *llm.Client
	Reasoning *llm.Client
	Codegen   *llm.Client
}

// NewModels builds the inference clients. They share one outbound pacer
// when LLM_MAX_RPS is set.
func NewModels(cfg *infra.Config, logger *infra.Logger) (*Models, error) {
	var limiter *rate.Limiter
	if cfg.LLMMaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LLMMaxRPS), 1)
	}
	build := func(name, baseURL, model string) (*llm.Client, error) {
		c, err := llm.NewClient(llm.Options{
			BaseURL: baseURL,
			Model:   model,
			APIKey:  cfg.InferenceAPIToken,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
			Limiter: limiter,
		})
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", name, err)
		}
		return c, nil
	}

	vision, err := build("vision", cfg.VisionBaseURL, cfg.VisionModel)
	if err != nil {
		return nil, err
	}
	reasoning, err := build("reasoning", cfg.ReasoningBaseURL, cfg.ReasoningModel)
	if err != nil {
		return nil, err
	}
	codegen, err := build("codegen", cfg.CodegenBaseURL, cfg.CodegenModel)
	if err != nil {
		return nil, err
	}
	return &Models{Vision: vision, Reasoning: reasoning, Codegen: codegen}, nil
}

// NewManager assembles the workflow engine and the job manager on top of d.
// Text completions are cached when LLM_CACHE_ENABLED is set; image analysis
// is never cached.
func (d *Deps) NewManager(models *Models) (*jobs.Manager, error) {
	lang, err := workflow.LanguageByName(d.Config.CodegenLanguage)
	if err != nil {
		return nil, err
	}

	var planner, coder workflow.TextModel = models.Reasoning, models.Codegen
	if d.Config.LLMCacheEnabled && d.Cache.Enabled() {
		planner = llm.NewCachedModel(models.Reasoning, d.Cache, d.Config.CacheTTLLLM)
		coder = llm.NewCachedModel(models.Codegen, d.Cache, d.Config.CacheTTLLLM)
	}

	engine := workflow.NewEngine(models.Vision, planner, coder, lang, d.Logger)
	return jobs.NewManager(d.Jobs, d.Files, d.Store, engine,
		jobs.WithCache(d.Cache),
		jobs.WithLogger(d.Logger),
	), nil
}
