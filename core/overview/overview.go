package overview

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/leofalp/polprofile/providers/ai"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// overviewContextKey is the key used to store Overview in context.
const overviewContextKey contextKey = "overview"

// Overview aggregates token usage, request counts and tool call statistics
// for one pipeline run. Parallel stages report into the same Overview, so
// every method is safe for concurrent use.
type Overview struct {
	mu sync.Mutex

	totalUsage    ai.Usage
	stageUsage    map[string]ai.Usage
	requests      int
	toolCallStats map[string]int

	startTime time.Time
	endTime   time.Time
}

// Summary is an immutable copy of an Overview's counters.
type Summary struct {
	TotalUsage    ai.Usage            `json:"total_usage"`
	StageUsage    map[string]ai.Usage `json:"stage_usage,omitempty"`
	Requests      int                 `json:"requests"`
	ToolCallStats map[string]int      `json:"tool_calls,omitempty"`
	Duration      time.Duration       `json:"duration"`
}

// New returns an empty Overview.
func New() *Overview {
	return &Overview{
		stageUsage:    map[string]ai.Usage{},
		toolCallStats: map[string]int{},
	}
}

// FromContext returns the Overview stored in ctx, or nil when the caller did
// not ask for tracking.
func FromContext(ctx context.Context) *Overview {
	overview, _ := ctx.Value(overviewContextKey).(*Overview)
	return overview
}

// ToContext stores the Overview in the given context and returns the enriched context.
func (overview *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewContextKey, overview)
}

// IncludeUsage accumulates token usage from one response into the totals and
// into the per-stage breakdown when stage is non-empty.
func (overview *Overview) IncludeUsage(stage string, usage *ai.Usage) {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.requests++
	if usage == nil {
		return
	}

	addUsage(&overview.totalUsage, usage)
	if stage != "" {
		perStage := overview.stageUsage[stage]
		addUsage(&perStage, usage)
		overview.stageUsage[stage] = perStage
	}
}

func addUsage(total *ai.Usage, usage *ai.Usage) {
	total.PromptTokens += usage.PromptTokens
	total.CompletionTokens += usage.CompletionTokens
	total.TotalTokens += usage.TotalTokens
	total.ReasoningTokens += usage.ReasoningTokens
	total.CachedTokens += usage.CachedTokens
}

// AddToolCalls records tool call invocations in the overview statistics.
func (overview *Overview) AddToolCalls(tools []ai.ToolCall) {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	for _, tool := range tools {
		overview.toolCallStats[tool.Function.Name]++
	}
}

// StartExecution marks the start of the run.
func (overview *Overview) StartExecution() {
	overview.mu.Lock()
	overview.startTime = time.Now()
	overview.mu.Unlock()
}

// EndExecution marks the end of the run.
func (overview *Overview) EndExecution() {
	overview.mu.Lock()
	overview.endTime = time.Now()
	overview.mu.Unlock()
}

// Summary returns a copy of the current counters. Duration is zero until
// both StartExecution and EndExecution have been called.
func (overview *Overview) Summary() Summary {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	summary := Summary{
		TotalUsage:    overview.totalUsage,
		StageUsage:    maps.Clone(overview.stageUsage),
		Requests:      overview.requests,
		ToolCallStats: maps.Clone(overview.toolCallStats),
	}
	if !overview.startTime.IsZero() && !overview.endTime.IsZero() {
		summary.Duration = overview.endTime.Sub(overview.startTime)
	}
	return summary
}
