package pipeline

import (
	"time"

	"github.com/jimdaga/unipost/internal/references"
)

// Outcome tells a full run from one that continued without references.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
)

// Notice codes. Degradation codes explain why no references were used.
const (
	NoticeCacheUnavailable = "cache_unavailable"
	NoticeSearchFailed     = "search_failed"
	NoticeNoResults        = "no_results"
	NoticeNoUsableTexts    = "no_usable_texts"
	NoticeRankingFailed    = "ranking_failed"
	NoticeNoRankedResults  = "no_ranked_results"
	NoticeDispatchFailed   = "approval_dispatch_failed"
	NoticePersistFailed    = "persistence_failed"
)

// Notice is an informational message attached to a successful run.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID              string                   `json:"run_id"`
	Outcome            Outcome                  `json:"outcome"`
	Topic              string                   `json:"topic"`
	Platform           string                   `json:"platform"`
	Text               string                   `json:"generated_text"`
	WordCount          int                      `json:"word_count"`
	TargetWordCount    int                      `json:"target_word_count"`
	OnTarget           bool                     `json:"on_target"`
	References         []references.Reference   `json:"references"`
	TopReferences      []references.DisplayItem `json:"top_references"`
	Preview            []references.DisplayItem `json:"preview"`
	Summary            references.Summary       `json:"summary"`
	CacheHit           bool                     `json:"cache_hit"`
	ApprovalDispatched bool                     `json:"approval_dispatched"`
	PostID             int64                    `json:"persisted_record_id,omitempty"`
	PersistenceWarning string                   `json:"persistence_warning,omitempty"`
	Notices            []Notice                 `json:"notices"`
	Duration           time.Duration            `json:"duration"`
}

// Persisted reports whether the content API stored the post.
func (r *Result) Persisted() bool {
	return r.PostID > 0
}

func (r *Result) notice(code, message string) {
	r.Notices = append(r.Notices, Notice{Code: code, Message: message})
}
