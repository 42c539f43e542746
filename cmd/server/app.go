package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/cache"
	"github.com/jimdaga/unipost/internal/config"
	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/database"
	"github.com/jimdaga/unipost/internal/generator"
	"github.com/jimdaga/unipost/internal/pipeline"
	"github.com/jimdaga/unipost/internal/prompt"
	"github.com/jimdaga/unipost/internal/references"
	"github.com/jimdaga/unipost/internal/search"
	"github.com/jimdaga/unipost/internal/session"
	"github.com/jimdaga/unipost/internal/stats"
	"github.com/jimdaga/unipost/internal/streams"
	"github.com/jimdaga/unipost/internal/webhook"
	"github.com/jimdaga/unipost/internal/worker"
)

// app holds the wired collaborators shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	rdb      *redis.Client
	db       *gorm.DB
	content  *content.Client
	service  *content.ServiceAuth
	cache    *cache.EmbeddingCache
	recorder stats.Recorder
	sessions *session.Store

	indexer  *search.MeiliSearcher
	enqueuer *worker.Enqueuer

	reviewer     *approval.Reviewer
	applier      *approval.DecisionApplier
	orchestrator *pipeline.Orchestrator

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	a.rdb = redis.NewClient(opt)
	a.onClose(func() { a.rdb.Close() })

	if cfg.DatabaseURL != "" {
		db, err := database.Init(ctx, cfg.DatabaseURL, database.DefaultPool)
		if err != nil {
			a.close()
			return nil, err
		}
		a.db = db
		a.onClose(func() { database.Close(db) })
		a.recorder = stats.NewGormRecorder(db)
	} else {
		logger.Warn("DATABASE_URL not set, statistics are kept in memory")
		a.recorder = stats.NewMemoryRecorder()
	}

	a.content = content.NewClient(cfg.ContentAPIURL, cfg.HTTPTimeout, logger)
	a.service = content.NewServiceAuth(a.content, cfg.ContentAPIUsername, cfg.ContentAPIPassword)
	a.cache = cache.New(a.rdb, cfg.CacheTTL, logger)
	a.sessions = session.NewStore(a.rdb, cfg.SessionTTL)

	if cfg.MeilisearchHost != "" {
		client := search.NewMeiliClient(cfg.MeilisearchHost, cfg.MeilisearchAPIKey)
		a.indexer = search.NewMeiliSearcher(client, cfg.MeilisearchIndex, logger)

		enqueuer, err := worker.NewEnqueuer(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.enqueuer = enqueuer
		a.onClose(func() { enqueuer.Close() })
	}

	var indexQueue approval.IndexEnqueuer
	if a.enqueuer != nil {
		indexQueue = a.enqueuer
	}
	a.reviewer = approval.NewReviewer(a.content, a.recorder, indexQueue, logger)
	a.applier = approval.NewDecisionApplier(a.reviewer, a.service)

	orch, err := a.newOrchestrator()
	if err != nil {
		a.close()
		return nil, err
	}
	a.orchestrator = orch
	return a, nil
}

func (a *app) newOrchestrator() (*pipeline.Orchestrator, error) {
	cfg := a.cfg

	var searcher search.Searcher
	switch cfg.SearchBackend {
	case "meilisearch":
		if a.indexer == nil {
			return nil, fmt.Errorf("SEARCH_BACKEND=meilisearch requires MEILISEARCH_HOST")
		}
		searcher = a.indexer
	case "api", "":
		searcher = search.NewAPISearcher(cfg.EmbeddingsAPIURL, cfg.HTTPTimeout, a.service, a.logger)
	default:
		return nil, fmt.Errorf("unknown SEARCH_BACKEND %q", cfg.SearchBackend)
	}
	scorer := search.NewSimilarityScorer(cfg.EmbeddingsAPIURL, cfg.HTTPTimeout, a.service, a.logger)

	llm, err := generator.NewFromConfig(&generator.LLMSettings{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	dispatcher, err := a.newDispatcher()
	if err != nil {
		return nil, err
	}

	platforms := prompt.DefaultRegistry()
	return pipeline.New(pipeline.Deps{
		Cache:      a.cache,
		Searcher:   searcher,
		Normalizer: references.NewNormalizer(),
		Ranker:     references.NewRanker(scorer),
		Prompts:    prompt.NewBuilder(platforms),
		Platforms:  platforms,
		LLM:        llm,
		Dispatcher: dispatcher,
		Posts:      a.content,
		Stats:      a.recorder,
		Logger:     a.logger,
	}), nil
}

func (a *app) newDispatcher() (approval.Dispatcher, error) {
	cfg := a.cfg
	switch cfg.ApprovalTransport {
	case "stream":
		publisher, err := streams.NewPublisher(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create approval publisher: %w", err)
		}
		a.onClose(func() { publisher.Close() })
		return publisher, nil
	case "webhook", "":
		return webhook.NewClient(cfg.ApprovalWebhookURL, cfg.ApprovalWebhookSecret, cfg.ApprovalStubMode, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown APPROVAL_TRANSPORT %q", cfg.ApprovalTransport)
	}
}

// workerDeps returns the task handler collaborators, or an error when no
// reference index is configured.
func (a *app) workerDeps() (worker.Deps, error) {
	if a.indexer == nil {
		return worker.Deps{}, fmt.Errorf("the worker requires MEILISEARCH_HOST")
	}
	return worker.Deps{Indexer: a.indexer, Posts: a.content, Auth: a.service, Logger: a.logger}, nil
}

// startBackground starts the asynq worker, its scheduler and, for the
// stream transport, the decision consumer. The returned function stops
// them in reverse order.
func (a *app) startBackground() (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if a.indexer != nil {
		deps, _ := a.workerDeps()
		stop, err := worker.Start(a.cfg, deps)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop)

		stopScheduler, err := worker.StartScheduler(a.cfg, a.logger)
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, stopScheduler)
	} else {
		a.logger.Warn("MEILISEARCH_HOST not set, reference indexing disabled")
	}

	if a.cfg.ApprovalTransport == "stream" {
		stop, err := streams.StartDecisionConsumer(a.cfg.RedisURL, a.applier, a.logger)
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stopAll, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
