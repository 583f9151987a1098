package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/nusup/internal/ports/secondary"
)

// RunsAdapter renders the install journal.
type RunsAdapter struct {
	journal secondary.JournalRepository
	out     io.Writer
}

// NewRunsAdapter creates a new RunsAdapter with the given repository.
func NewRunsAdapter(journal secondary.JournalRepository, out io.Writer) *RunsAdapter {
	return &RunsAdapter{
		journal: journal,
		out:     out,
	}
}

// List prints past runs, newest first, with optional kind filter and
// limit.
func (a *RunsAdapter) List(ctx context.Context, kind string, limit int) error {
	runs, err := a.journal.ListRuns(ctx, secondary.RunFilters{Kind: kind, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs recorded")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-38s %-8s %-6s %-22s %-7s %s\n", "RUN", "KIND", "REGION", "RESULT", "UPDATED", "STARTED")
	fmt.Fprintln(a.out, "──────────────────────────────────────────────────────────────────────────────────────────")
	for _, run := range runs {
		region := run.Region
		if region == "" {
			region = "-"
		}
		fmt.Fprintf(a.out, "%-38s %-8s %-6s %s %-7d %s\n",
			run.ID, run.Kind, region, renderResult(run.Result), run.TitlesUpdated, run.StartedAt)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show prints one run with its per-title events.
func (a *RunsAdapter) Show(ctx context.Context, runID string) error {
	events, err := a.journal.ListTitleEvents(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list title events: %w", err)
	}

	if len(events) == 0 {
		fmt.Fprintf(a.out, "No title events for run %s\n", runID)
		return nil
	}

	fmt.Fprintf(a.out, "\nRun %s\n\n", runID)
	for _, e := range events {
		marker := "•"
		switch e.Action {
		case secondary.TitleEventInstalled:
			marker = color.New(color.FgGreen).Sprint("✓")
		case secondary.TitleEventFailed:
			marker = color.New(color.FgRed).Sprint("✗")
		}
		line := fmt.Sprintf("%s %s %s", marker, e.TitleID, e.Action)
		if e.Detail != "" {
			line += " (" + e.Detail + ")"
		}
		fmt.Fprintln(a.out, line)
	}
	fmt.Fprintln(a.out)

	return nil
}

// renderResult pads the result to the column width before colorizing;
// the ANSI escape bytes must not count toward the padding.
func renderResult(result string) string {
	padded := fmt.Sprintf("%-22s", result)
	switch result {
	case "succeeded", "up-to-date":
		return color.New(color.FgGreen).Sprint(padded)
	case "running":
		return padded
	default:
		return color.New(color.FgRed).Sprint(padded)
	}
}
