package secondary

import "context"

// Run kinds recorded in the journal.
const (
	RunKindOnline  = "online"
	RunKindPackage = "package"
)

// Title event actions recorded in the journal.
const (
	TitleEventInstalled = "installed"
	TitleEventSkipped   = "skipped"
	TitleEventFailed    = "failed"
)

// RunRecord is one engine run as stored in the journal.
type RunRecord struct {
	ID            string
	Kind          string // RunKindOnline or RunKindPackage
	Region        string
	Result        string
	TitlesUpdated int
	StartedAt     string
	FinishedAt    string
}

// TitleEventRecord is one per-title outcome within a run.
type TitleEventRecord struct {
	RunID     string
	TitleID   string // 16-hex title id
	Action    string // TitleEventInstalled, TitleEventSkipped or TitleEventFailed
	Detail    string
	CreatedAt string
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	Kind  string
	Limit int
}

// JournalRepository defines the secondary port for the install audit
// trail. Journal writes are best-effort: the engine logs failures and
// never lets them alter an install result.
type JournalRepository interface {
	// CreateRun persists a new run in its started state.
	CreateRun(ctx context.Context, run *RunRecord) error

	// FinishRun records the result and end time of a run.
	FinishRun(ctx context.Context, runID, result string, titlesUpdated int) error

	// AppendTitleEvent records a per-title outcome for a run.
	AppendTitleEvent(ctx context.Context, event *TitleEventRecord) error

	// ListRuns retrieves runs matching the given filters, newest first.
	ListRuns(ctx context.Context, filters RunFilters) ([]*RunRecord, error)

	// ListTitleEvents retrieves the title events of a run in insertion
	// order.
	ListTitleEvents(ctx context.Context, runID string) ([]*TitleEventRecord, error)
}
