package cleanup

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/uc-package/swimctl/internal/models"
)

// Outcome 单个候选镜像的最终结果
type Outcome string

const (
	OutcomeDeleted              Outcome = "deleted"
	OutcomeUnlockFailed         Outcome = "unlock-failed"
	OutcomeDeleteFailed         Outcome = "delete-failed"
	OutcomeTimedOut             Outcome = "timed-out"
	OutcomeSkippedDryRun        Outcome = "skipped-dry-run"
	OutcomeSkippedGolden        Outcome = "skipped-golden"
	OutcomeSkippedLimit         Outcome = "skipped-limit"
	OutcomeAwaitingConfirmation Outcome = "awaiting-confirmation"
	OutcomeAborted              Outcome = "aborted"
)

// AllOutcomes 按展示顺序列出全部结果类型
var AllOutcomes = []Outcome{
	OutcomeDeleted,
	OutcomeUnlockFailed,
	OutcomeDeleteFailed,
	OutcomeTimedOut,
	OutcomeSkippedDryRun,
	OutcomeSkippedGolden,
	OutcomeSkippedLimit,
	OutcomeAwaitingConfirmation,
	OutcomeAborted,
}

// Entry 报告中的一行
type Entry struct {
	Image    models.ImageRecord `json:"image"`
	Outcome  Outcome            `json:"outcome"`
	Reason   string             `json:"reason,omitempty"`
	TaskID   string             `json:"taskId,omitempty"`
	Unlocked bool               `json:"unlocked,omitempty"` // 本次运行中已移除 golden 标记
	Polls    int                `json:"polls,omitempty"`
}

// Report 一次运行的结果，构建后不再修改
type Report struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	DryRun     bool            `json:"dryRun"`
	Halted     bool            `json:"halted"` // 等待确认，未执行任何删除
	Entries    []Entry         `json:"entries"`
	Counts     map[Outcome]int `json:"counts"`
}

// Failed 是否存在删除失败或超时的镜像（决定进程退出码）
func (r *Report) Failed() bool {
	return r.Counts[OutcomeDeleteFailed] > 0 || r.Counts[OutcomeTimedOut] > 0
}

// Candidates 报告中的全部候选镜像
func (r *Report) Candidates() []models.ImageRecord {
	return lo.Map(r.Entries, func(e Entry, _ int) models.ImageRecord {
		return e.Image
	})
}

// Duration 运行耗时
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// accumulator 并发安全的结果收集器，按候选镜像的输入位置存放，保证报告顺序确定
type accumulator struct {
	mu      sync.Mutex
	entries []Entry
	filled  []bool
}

func newAccumulator(n int) *accumulator {
	return &accumulator{
		entries: make([]Entry, n),
		filled:  make([]bool, n),
	}
}

func (a *accumulator) record(i int, e Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filled[i] {
		return
	}
	a.entries[i] = e
	a.filled[i] = true
}

func (a *accumulator) recorded(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filled[i]
}

func (a *accumulator) build(r *Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r.Entries = append([]Entry(nil), a.entries...)
	r.Counts = countOutcomes(r.Entries)
}

func countOutcomes(entries []Entry) map[Outcome]int {
	counts := lo.CountValuesBy(entries, func(e Entry) Outcome {
		return e.Outcome
	})
	if counts == nil {
		counts = map[Outcome]int{}
	}
	return counts
}
