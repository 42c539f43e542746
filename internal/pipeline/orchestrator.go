// Package pipeline runs post generation: cache lookup, reference search,
// ranking, prompt assembly, generation, approval dispatch and persistence,
// applying the degradation policy when retrieval comes back empty.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/generator"
	"github.com/jimdaga/unipost/internal/metrics"
	"github.com/jimdaga/unipost/internal/prompt"
	"github.com/jimdaga/unipost/internal/references"
	"github.com/jimdaga/unipost/internal/search"
	"github.com/jimdaga/unipost/internal/session"
)

// Cache stores ranked references per search query.
type Cache interface {
	Get(ctx context.Context, query string) ([]references.Reference, bool, error)
	Put(ctx context.Context, query string, refs []references.Reference) error
}

// Normalizer cleans raw search results.
type Normalizer interface {
	Normalize(texts []references.RawText) []references.RawText
}

// Ranker scores cleaned texts against the topic.
type Ranker interface {
	Rank(ctx context.Context, topic string, texts []references.RawText) ([]references.Reference, error)
}

// PromptBuilder assembles the generation context.
type PromptBuilder interface {
	Build(p prompt.Params) prompt.Context
}

// PostCreator stores generated posts.
type PostCreator interface {
	CreatePost(ctx context.Context, token string, p content.NewPost) (*content.Post, error)
}

// GeneratedRecorder counts stored posts.
type GeneratedRecorder interface {
	RecordGenerated(ctx context.Context) error
}

// Credentials identify the caller of a run.
type Credentials struct {
	Token        string
	Username     string
	Capabilities content.Capabilities
}

// Deps are the orchestrator's collaborators. Dispatcher and Stats may be
// nil.
type Deps struct {
	Cache      Cache
	Searcher   search.Searcher
	Normalizer Normalizer
	Ranker     Ranker
	Prompts    PromptBuilder
	Platforms  *prompt.Registry
	LLM        generator.LLMClient
	Dispatcher approval.Dispatcher
	Posts      PostCreator
	Stats      GeneratedRecorder
	Logger     *slog.Logger
}

// Orchestrator sequences one synchronous generation run.
type Orchestrator struct {
	deps  Deps
	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Platforms == nil {
		deps.Platforms = prompt.DefaultRegistry()
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder(deps.Platforms)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{deps: deps, now: time.Now, newID: uuid.NewString}
}

// Run executes the pipeline and stores the result in st as the last result.
// Returned errors are *ValidationError, ErrForbidden, ErrGenerationFailed or
// *PanicError; anything else that goes wrong downstream of generation is
// reported on the Result.
func (o *Orchestrator) Run(ctx context.Context, st *session.State, req Request, creds Credentials) (*Result, error) {
	runID := o.newID()
	return o.run(ctx, runID, st, req, creds, LogProgress{Logger: o.deps.Logger, RunID: runID})
}

// RunWithProgress is Run with a caller supplied progress receiver.
func (o *Orchestrator) RunWithProgress(ctx context.Context, st *session.State, req Request, creds Credentials, progress Progress) (*Result, error) {
	return o.run(ctx, o.newID(), st, req, creds, progress)
}

func (o *Orchestrator) run(ctx context.Context, runID string, st *session.State, req Request, creds Credentials, progress Progress) (result *Result, err error) {
	if progress == nil {
		progress = nopProgress{}
	}
	start := o.now()
	logger := o.deps.Logger.With("run_id", runID)

	defer progress.Done()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("pipeline panicked", "panic", p, "stack", string(debug.Stack()))
			result, err = nil, &PanicError{Value: p}
		}
		metrics.RecordRun(outcomeLabel(result, err), o.now().Sub(start))
	}()

	if !creds.Capabilities.Has(content.CapCreate) {
		return nil, ErrForbidden
	}
	req, err = req.normalized(o.deps.Platforms)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    runID,
		Topic:    req.Topic,
		Platform: req.Platform,
		Notices:  []Notice{},
	}

	refs := o.retrieve(ctx, logger, req, res, progress)
	res.References = refs
	if len(refs) > 0 {
		res.Outcome = OutcomeSuccess
	} else {
		res.Outcome = OutcomeDegraded
	}

	progress.Stage(StagePrompt, stagePercent[StagePrompt])
	pctx := o.deps.Prompts.Build(prompt.Params{
		Topic:           req.Topic,
		References:      refs,
		Platform:        req.Platform,
		Tone:            prompt.Tone(req.Tone),
		Creativity:      prompt.Creativity(req.Creativity),
		Length:          req.Length,
		IncludeHashtags: req.IncludeHashtags,
		IncludeCTA:      req.IncludeCTA,
	})

	progress.Stage(StageGenerate, stagePercent[StageGenerate])
	stageStart := o.now()
	text, genErr := o.deps.LLM.Complete(ctx, pctx)
	metrics.RecordStage(StageGenerate, o.now().Sub(stageStart))
	if genErr != nil || text == "" {
		logger.Error("text generation failed", "topic", req.Topic, "error", genErr)
		return nil, ErrGenerationFailed
	}
	res.Text = text

	progress.Stage(StageApproval, stagePercent[StageApproval])
	res.ApprovalDispatched = o.dispatch(ctx, logger, req, creds, res)

	progress.Stage(StagePersist, stagePercent[StagePersist])
	o.persist(ctx, logger, req, creds, res)

	progress.Stage(StageFinalize, stagePercent[StageFinalize])
	res.WordCount = prompt.CountWords(res.Text)
	res.TargetWordCount = prompt.ExtractWordCount(req.Length)
	res.OnTarget = prompt.OnTarget(res.WordCount, res.TargetWordCount)
	res.TopReferences = references.Display(refs, references.DisplayLimit)
	res.Preview = references.Display(refs, references.PreviewLimit)
	res.Summary = references.Summarize(refs)
	res.Duration = o.now().Sub(start)

	if st != nil {
		st.SetLastResult(&session.LastGenerated{
			RunID:              res.RunID,
			Theme:              req.Topic,
			Text:               res.Text,
			Platform:           req.Platform,
			Tone:               req.Tone,
			Creativity:         req.Creativity,
			Length:             req.Length,
			WordCount:          res.WordCount,
			TargetWordCount:    res.TargetWordCount,
			References:         refs,
			ApprovalDispatched: res.ApprovalDispatched,
			PostID:             res.PostID,
			PersistenceWarning: res.PersistenceWarning,
			GeneratedAt:        o.now().UTC(),
		})
	}

	logger.Info("pipeline finished",
		"outcome", res.Outcome,
		"reference_count", len(refs),
		"cache_hit", res.CacheHit,
		"approval_dispatched", res.ApprovalDispatched,
		"post_id", res.PostID,
		"word_count", res.WordCount,
		"duration", res.Duration,
	)
	return res, nil
}

// retrieve returns ranked references for the run, or an empty slice with a
// notice explaining why there are none.
func (o *Orchestrator) retrieve(ctx context.Context, logger *slog.Logger, req Request, res *Result, progress Progress) []references.Reference {
	empty := []references.Reference{}

	progress.Stage(StageCache, stagePercent[StageCache])
	if o.deps.Cache != nil {
		cached, hit, err := o.deps.Cache.Get(ctx, req.SearchQuery)
		switch {
		case err != nil:
			metrics.RecordCacheLookup("error")
			logger.Warn("cache lookup failed", "search_query", req.SearchQuery, "error", err)
			res.notice(NoticeCacheUnavailable, "Cache indisponível; buscando referências diretamente.")
		case hit && len(cached) > 0:
			metrics.RecordCacheLookup("hit")
			res.CacheHit = true
			logger.Debug("cache hit", "search_query", req.SearchQuery, "reference_count", len(cached))
			refs := append([]references.Reference(nil), cached...)
			references.SortByScore(refs)
			return refs
		default:
			metrics.RecordCacheLookup("miss")
		}
	}

	progress.Stage(StageSearch, stagePercent[StageSearch])
	stageStart := o.now()
	raw, err := o.deps.Searcher.Search(ctx, req.SearchQuery)
	metrics.RecordStage(StageSearch, o.now().Sub(stageStart))
	if err != nil {
		o.degrade(logger, res, NoticeSearchFailed, "Busca de referências falhou; o post será gerado apenas a partir do tema.", err)
		return empty
	}
	if len(raw) == 0 {
		o.degrade(logger, res, NoticeNoResults, "Nenhuma referência encontrada; o post será gerado apenas a partir do tema.", nil)
		return empty
	}

	progress.Stage(StageNormalize, stagePercent[StageNormalize])
	texts := o.deps.Normalizer.Normalize(raw)
	if len(texts) == 0 {
		o.degrade(logger, res, NoticeNoUsableTexts, "As referências encontradas não puderam ser aproveitadas.", nil)
		return empty
	}

	progress.Stage(StageRank, stagePercent[StageRank])
	stageStart = o.now()
	refs, err := o.deps.Ranker.Rank(ctx, req.Topic, texts)
	metrics.RecordStage(StageRank, o.now().Sub(stageStart))
	if err != nil {
		o.degrade(logger, res, NoticeRankingFailed, "Não foi possível calcular a relevância das referências.", err)
		return empty
	}
	if len(refs) == 0 {
		o.degrade(logger, res, NoticeNoRankedResults, "Nenhuma referência relevante para o tema.", nil)
		return empty
	}
	references.SortByScore(refs)

	if o.deps.Cache != nil {
		if err := o.deps.Cache.Put(ctx, req.SearchQuery, refs); err != nil {
			logger.Warn("cache write failed", "search_query", req.SearchQuery, "error", err)
		}
	}
	return refs
}

func (o *Orchestrator) degrade(logger *slog.Logger, res *Result, code, message string, cause error) {
	metrics.RecordDegradation(code)
	if cause != nil {
		logger.Warn("continuing without references", "reason", code, "error", cause)
	} else {
		logger.Info("continuing without references", "reason", code)
	}
	res.notice(code, message)
}

func (o *Orchestrator) dispatch(ctx context.Context, logger *slog.Logger, req Request, creds Credentials, res *Result) bool {
	if o.deps.Dispatcher == nil {
		return false
	}

	err := o.deps.Dispatcher.Dispatch(ctx, approval.Request{
		RunID:       res.RunID,
		Topic:       req.Topic,
		Text:        res.Text,
		Platform:    platformOrGeneric(req.Platform),
		RequestedBy: creds.Username,
		RequestedAt: o.now().UTC(),
	})
	metrics.RecordDispatch(err == nil)
	if err != nil {
		logger.Warn("approval dispatch failed", "error", err)
		res.notice(NoticeDispatchFailed, "Não foi possível enviar o post para aprovação.")
		return false
	}
	return true
}

func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, req Request, creds Credentials, res *Result) {
	post, err := o.deps.Posts.CreatePost(ctx, creds.Token, content.NewPost{
		Theme:      req.Topic,
		Platform:   platformOrGeneric(req.Platform),
		Content:    res.Text,
		IsApproved: false,
	})
	if err != nil {
		metrics.RecordPersistenceFailure()
		logger.Error("failed to persist generated post", "error", err)
		res.PersistenceWarning = persistenceWarning(err)
		res.notice(NoticePersistFailed, res.PersistenceWarning)
		return
	}

	res.PostID = post.ID
	if o.deps.Stats != nil {
		if err := o.deps.Stats.RecordGenerated(ctx); err != nil {
			logger.Warn("failed to record generated post", "post_id", post.ID, "error", err)
		}
	}
}

func persistenceWarning(err error) string {
	if errors.Is(err, content.ErrUnauthorized) {
		return "Post gerado, mas a sessão expirou antes de salvá-lo."
	}
	return fmt.Sprintf("Post gerado, mas não foi salvo: %v", err)
}

func platformOrGeneric(platform string) string {
	if platform == "" {
		return content.GenericPlatform
	}
	return platform
}

func outcomeLabel(res *Result, err error) string {
	var validation *ValidationError
	var panicErr *PanicError
	switch {
	case err == nil && res != nil:
		return string(res.Outcome)
	case errors.As(err, &validation):
		return "validation_failed"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.As(err, &panicErr):
		return "panic"
	default:
		return "error"
	}
}
