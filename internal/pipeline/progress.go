package pipeline

import "log/slog"

// Stage names reported through Progress.
const (
	StageCache     = "cache"
	StageSearch    = "search"
	StageNormalize = "normalize"
	StageRank      = "rank"
	StagePrompt    = "prompt"
	StageGenerate  = "generate"
	StageApproval  = "approval"
	StagePersist   = "persist"
	StageFinalize  = "finalize"
)

var stagePercent = map[string]int{
	StageCache:     10,
	StageSearch:    20,
	StageNormalize: 30,
	StageRank:      40,
	StagePrompt:    50,
	StageGenerate:  60,
	StageApproval:  80,
	StagePersist:   90,
	StageFinalize:  100,
}

// Progress receives stage updates. Done is called exactly once per run,
// whatever the outcome.
type Progress interface {
	Stage(name string, percent int)
	Done()
}

type nopProgress struct{}

func (nopProgress) Stage(string, int) {}
func (nopProgress) Done()             {}

// LogProgress reports stages as debug log lines.
type LogProgress struct {
	Logger *slog.Logger
	RunID  string
}

func (p LogProgress) Stage(name string, percent int) {
	p.Logger.Debug("pipeline stage", "run_id", p.RunID, "stage", name, "percent", percent)
}

func (p LogProgress) Done() {
	p.Logger.Debug("pipeline finished", "run_id", p.RunID)
}
