package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/cache"
	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/logging"
	"github.com/jimdaga/unipost/internal/prompt"
	"github.com/jimdaga/unipost/internal/references"
	"github.com/jimdaga/unipost/internal/session"
)

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) Search(ctx context.Context, query string) ([]references.RawText, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]references.RawText), args.Error(1)
}

type mockRanker struct{ mock.Mock }

func (m *mockRanker) Rank(ctx context.Context, topic string, texts []references.RawText) ([]references.Reference, error) {
	args := m.Called(ctx, topic, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]references.Reference), args.Error(1)
}

type mockLLM struct{ mock.Mock }

func (m *mockLLM) Complete(ctx context.Context, p prompt.Context) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, req approval.Request) error {
	return m.Called(ctx, req).Error(0)
}

type mockPosts struct{ mock.Mock }

func (m *mockPosts) CreatePost(ctx context.Context, token string, p content.NewPost) (*content.Post, error) {
	args := m.Called(ctx, token, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*content.Post), args.Error(1)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) RecordGenerated(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordingProgress struct {
	stages []string
	done   int
}

func (p *recordingProgress) Stage(name string, _ int) { p.stages = append(p.stages, name) }
func (p *recordingProgress) Done()                    { p.done++ }

type fixture struct {
	searcher   *mockSearcher
	ranker     *mockRanker
	llm        *mockLLM
	dispatcher *mockDispatcher
	posts      *mockPosts
	stats      *mockStats
	cache      *cache.EmbeddingCache
	mr         *miniredis.Miniredis
	orch       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		searcher:   &mockSearcher{},
		ranker:     &mockRanker{},
		llm:        &mockLLM{},
		dispatcher: &mockDispatcher{},
		posts:      &mockPosts{},
		stats:      &mockStats{},
		cache:      cache.New(rdb, 0, logging.Discard()),
		mr:         mr,
	}
	f.orch = New(Deps{
		Cache:      f.cache,
		Searcher:   f.searcher,
		Normalizer: references.NewNormalizer(),
		Ranker:     f.ranker,
		LLM:        f.llm,
		Dispatcher: f.dispatcher,
		Posts:      f.posts,
		Stats:      f.stats,
		Logger:     logging.Discard(),
	})
	f.orch.newID = func() string { return "run-1" }
	return f
}

func creator() Credentials {
	return Credentials{Token: "tok", Username: "ana", Capabilities: content.CapRead | content.CapCreate}
}

func rawTexts() []references.RawText {
	return []references.RawText{
		{Title: "Mercado", Type: "Artigo", Source: "posts", Body: "O mercado de energia solar cresce no Brasil."},
		{Title: "Painéis", Type: "Artigo", Source: "posts", Body: "Painéis solares ficaram mais baratos em 2024."},
	}
}

func ranked() []references.Reference {
	return []references.Reference{
		{Title: "Painéis", Type: "Artigo", Source: "posts", Body: "Painéis solares ficaram mais baratos em 2024.", Score: 0.6},
		{Title: "Mercado", Type: "Artigo", Source: "posts", Body: "O mercado de energia solar cresce no Brasil.", Score: 0.9},
	}
}

func TestRunFullPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := session.NewState("sid", "ana")
	req := Request{Topic: "energia solar no Brasil", Platform: "lkn", Length: "Exato (300 palavras)"}

	f.searcher.On("Search", mock.Anything, "energia solar no Brasil").Return(rawTexts(), nil).Once()
	f.ranker.On("Rank", mock.Anything, "energia solar no Brasil", mock.Anything).Return(ranked(), nil).Once()
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(p prompt.Context) bool {
		return p.ReferenceCount == 2 && p.TargetWords == 300 && p.Platform.Code == "LKN"
	})).Return("um dois três quatro cinco", nil).Once()
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(r approval.Request) bool {
		return r.RunID == "run-1" && r.Platform == "LKN" && r.RequestedBy == "ana"
	})).Return(nil).Once()
	f.posts.On("CreatePost", mock.Anything, "tok", content.NewPost{
		Theme: "energia solar no Brasil", Platform: "LKN", Content: "um dois três quatro cinco",
	}).Return(&content.Post{ID: 42}, nil).Once()
	f.stats.On("RecordGenerated", mock.Anything).Return(nil).Once()

	res, err := f.orch.Run(ctx, st, req, creator())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "um dois três quatro cinco", res.Text)
	assert.Equal(t, 5, res.WordCount)
	assert.Equal(t, 300, res.TargetWordCount)
	assert.False(t, res.OnTarget)
	assert.True(t, res.ApprovalDispatched)
	assert.Equal(t, int64(42), res.PostID)
	assert.True(t, res.Persisted())
	assert.Empty(t, res.Notices)
	require.Len(t, res.References, 2)
	assert.Equal(t, 0.9, res.References[0].Score, "references are sorted by descending score")
	assert.Equal(t, 2, res.Summary.Count)

	require.NotNil(t, st.LastResult)
	assert.Equal(t, int64(42), st.LastResult.PostID)
	assert.Equal(t, "run-1", st.LastResult.RunID)

	cached, hit, err := f.cache.Get(ctx, "energia solar no Brasil")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, res.References, cached)

	mock.AssertExpectationsForObjects(t, f.searcher, f.ranker, f.llm, f.dispatcher, f.posts, f.stats)
}

func TestRunCacheHitSkipsSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	refs := ranked()
	references.SortByScore(refs)
	require.NoError(t, f.cache.Put(ctx, "energia solar", refs))

	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto gerado", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 1}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	res, err := f.orch.Run(ctx, nil, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)

	assert.True(t, res.CacheHit)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Len(t, res.References, 2)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	f.ranker.AssertNotCalled(t, "Rank", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunEmptyCacheEntrySearchesAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Put(ctx, "energia solar", []references.Reference{}))

	f.searcher.On("Search", mock.Anything, mock.Anything).Return(rawTexts(), nil).Once()
	f.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(ranked(), nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto gerado", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 2}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	res, err := f.orch.Run(ctx, nil, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)

	assert.False(t, res.CacheHit)
	assert.Len(t, res.References, 2)
	f.searcher.AssertExpectations(t)
}

func TestRunNoSearchResultsStillGenerates(t *testing.T) {
	f := newFixture(t)

	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(p prompt.Context) bool {
		return p.ReferenceCount == 0
	})).Return("texto sem referências", nil).Once()
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 7}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	res, err := f.orch.Run(context.Background(), nil, Request{Topic: "tema sem fontes"}, creator())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.NotNil(t, res.References)
	assert.Empty(t, res.References)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeNoResults, res.Notices[0].Code)
	f.ranker.AssertNotCalled(t, "Rank", mock.Anything, mock.Anything, mock.Anything)
	f.llm.AssertExpectations(t)
}

func TestRunDegradationReasons(t *testing.T) {
	unusable := []references.RawText{{Title: "curto", Body: "curto"}}

	tests := []struct {
		name  string
		setup func(f *fixture)
		want  string
	}{
		{
			name: "search error",
			setup: func(f *fixture) {
				f.searcher.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
			},
			want: NoticeSearchFailed,
		},
		{
			name: "nothing usable after cleaning",
			setup: func(f *fixture) {
				f.searcher.On("Search", mock.Anything, mock.Anything).Return(unusable, nil)
			},
			want: NoticeNoUsableTexts,
		},
		{
			name: "ranking error",
			setup: func(f *fixture) {
				f.searcher.On("Search", mock.Anything, mock.Anything).Return(rawTexts(), nil)
				f.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("503"))
			},
			want: NoticeRankingFailed,
		},
		{
			name: "nothing ranked",
			setup: func(f *fixture) {
				f.searcher.On("Search", mock.Anything, mock.Anything).Return(rawTexts(), nil)
				f.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return([]references.Reference{}, nil)
			},
			want: NoticeNoRankedResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto", nil)
			f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
			f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 3}, nil)
			f.stats.On("RecordGenerated", mock.Anything).Return(nil)

			res, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creator())
			require.NoError(t, err)
			assert.Equal(t, OutcomeDegraded, res.Outcome)
			require.NotEmpty(t, res.Notices)
			assert.Equal(t, tt.want, res.Notices[0].Code)

			_, hit, err := f.cache.Get(context.Background(), "energia solar")
			require.NoError(t, err)
			assert.False(t, hit, "degraded runs are not cached")
		})
	}
}

func TestRunCacheUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	f.searcher.On("Search", mock.Anything, mock.Anything).Return(rawTexts(), nil)
	f.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(ranked(), nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 3}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	res, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeCacheUnavailable, res.Notices[0].Code)
}

func TestRunEmptyGenerationPersistsNothing(t *testing.T) {
	f := newFixture(t)
	st := session.NewState("sid", "ana")

	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("", nil)

	res, err := f.orch.Run(context.Background(), st, Request{Topic: "energia solar"}, creator())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Nil(t, st.LastResult)
	f.posts.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestRunLLMErrorIsGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creator())
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestRunPersistenceFailureKeepsText(t *testing.T) {
	f := newFixture(t)
	st := session.NewState("sid", "ana")

	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto gerado com sucesso", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("500 internal"))

	res, err := f.orch.Run(context.Background(), st, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)

	assert.Equal(t, "texto gerado com sucesso", res.Text)
	assert.True(t, res.ApprovalDispatched)
	assert.False(t, res.Persisted())
	assert.NotEmpty(t, res.PersistenceWarning)
	assert.Equal(t, NoticePersistFailed, res.Notices[len(res.Notices)-1].Code)
	f.stats.AssertNotCalled(t, "RecordGenerated", mock.Anything)

	require.NotNil(t, st.LastResult)
	assert.Equal(t, "texto gerado com sucesso", st.LastResult.Text)
	assert.False(t, st.LastResult.Persisted())
}

func TestRunDispatchFailureStillPersists(t *testing.T) {
	f := newFixture(t)

	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("webhook down"))
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 9}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(errors.New("db down"))

	res, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)

	assert.False(t, res.ApprovalDispatched)
	assert.Equal(t, int64(9), res.PostID)
	codes := make([]string, 0, len(res.Notices))
	for _, n := range res.Notices {
		codes = append(codes, n.Code)
	}
	assert.Contains(t, codes, NoticeDispatchFailed)
}

func TestRunValidationMakesNoExternalCalls(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"empty topic", Request{Topic: "   "}, "topic"},
		{"short topic", Request{Topic: "abc"}, "topic"},
		{"long topic", Request{Topic: strings.Repeat("a", MaxTopicLength+1)}, "topic"},
		{"script", Request{Topic: "veja <script>alert(1)</script>"}, "topic"},
		{"unknown platform", Request{Topic: "energia solar", Platform: "XYZ"}, "platform"},
		{"unknown tone", Request{Topic: "energia solar", Tone: "sarcástico"}, "tone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.orch.Run(context.Background(), nil, tt.req, creator())

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
			f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
			f.posts.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunForbiddenWithoutCreate(t *testing.T) {
	f := newFixture(t)
	creds := Credentials{Token: "tok", Capabilities: content.CapRead}

	_, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creds)
	assert.ErrorIs(t, err, ErrForbidden)
	f.searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRunRecoversPanics(t *testing.T) {
	f := newFixture(t)
	progress := &recordingProgress{}

	f.searcher.On("Search", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)

	res, err := f.orch.RunWithProgress(context.Background(), nil, Request{Topic: "energia solar"}, creator(), progress)
	assert.Nil(t, res)

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Value)
	assert.Equal(t, 1, progress.done)
}

func TestRunReportsStagesInOrder(t *testing.T) {
	f := newFixture(t)
	progress := &recordingProgress{}

	f.searcher.On("Search", mock.Anything, mock.Anything).Return(rawTexts(), nil)
	f.ranker.On("Rank", mock.Anything, mock.Anything, mock.Anything).Return(ranked(), nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto", nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 1}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	_, err := f.orch.RunWithProgress(context.Background(), nil, Request{Topic: "energia solar"}, creator(), progress)
	require.NoError(t, err)

	assert.Equal(t, []string{
		StageCache, StageSearch, StageNormalize, StageRank,
		StagePrompt, StageGenerate, StageApproval, StagePersist, StageFinalize,
	}, progress.stages)
	assert.Equal(t, 1, progress.done)
}

func TestRunWithoutDispatcher(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.Dispatcher = nil

	f.searcher.On("Search", mock.Anything, mock.Anything).Return([]references.RawText{}, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything).Return("texto", nil)
	f.posts.On("CreatePost", mock.Anything, mock.Anything, mock.Anything).Return(&content.Post{ID: 1}, nil)
	f.stats.On("RecordGenerated", mock.Anything).Return(nil)

	res, err := f.orch.Run(context.Background(), nil, Request{Topic: "energia solar"}, creator())
	require.NoError(t, err)
	assert.False(t, res.ApprovalDispatched)
}
