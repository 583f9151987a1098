// Package primary defines the primary ports (driving interfaces) of the
// install/update engine and the result types they produce.
package primary

import (
	"fmt"

	"github.com/example/nusup/internal/core/title"
)

// Result classifies the outcome of an install or update operation.
type Result int

const (
	// Succeeded means the operation completed and changed the store.
	Succeeded Result = iota

	// AlreadyUpToDate means the operation completed without needing any
	// change. A terminal success, not an error.
	AlreadyUpToDate

	// InvalidPackage means the supplied local package is not well-formed.
	InvalidPackage

	// ImportInitFailed means the store rejected the ticket import or the
	// title import init.
	ImportInitFailed

	// ImportFailed means the store rejected a ticket or content import.
	ImportFailed

	// ImportFinalizeFailed means the store rejected the commit or cancel
	// of an import.
	ImportFinalizeFailed

	// DownloadFailed means a download was absent, undersized or
	// truncated.
	DownloadFailed

	// ServerFailed means the update catalog was unreachable, rejected
	// the request or returned no titles.
	ServerFailed

	// Cancelled means the progress callback aborted the run.
	Cancelled
)

// String returns the lowercase identifier stored in the journal.
func (r Result) String() string {
	switch r {
	case Succeeded:
		return "succeeded"
	case AlreadyUpToDate:
		return "up-to-date"
	case InvalidPackage:
		return "invalid-package"
	case ImportInitFailed:
		return "import-init-failed"
	case ImportFailed:
		return "import-failed"
	case ImportFinalizeFailed:
		return "import-finalize-failed"
	case DownloadFailed:
		return "download-failed"
	case ServerFailed:
		return "server-failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// OK reports whether the result is one of the two success variants.
func (r Result) OK() bool {
	return r == Succeeded || r == AlreadyUpToDate
}

// Outcome carries a result plus enough context for a human-readable
// diagnostic: which title and, where applicable, which content unit
// failed, and everything that was updated before the failure.
type Outcome struct {
	Result Result

	// UpdatedTitles lists the titles committed during this run, in
	// commit order. Committed titles stay committed even when the run
	// later fails or is cancelled.
	UpdatedTitles []title.ID

	// FailedTitle is the title being processed when the run stopped,
	// zero on success.
	FailedTitle title.ID

	// FailedContent is the content id being processed when the run
	// stopped, zero when the failure was not content-scoped.
	FailedContent uint32

	// RunID is the journal id of this run, empty when journaling was
	// unavailable.
	RunID string
}

// Diagnostic renders a one-line human-readable description.
func (o Outcome) Diagnostic() string {
	switch {
	case o.Result.OK():
		return o.Result.String()
	case o.FailedContent != 0:
		return fmt.Sprintf("%s (title %s, content %08x)", o.Result, o.FailedTitle.Hex(), o.FailedContent)
	case o.FailedTitle != 0:
		return fmt.Sprintf("%s (title %s)", o.Result, o.FailedTitle.Hex())
	default:
		return o.Result.String()
	}
}

// ProgressFunc is invoked by the orchestrator around each catalog entry:
// once before work starts on the entry and once after it finishes.
// Returning false aborts the run with Cancelled before any work begins on
// the current entry.
type ProgressFunc func(processed, total int, id title.ID) bool
