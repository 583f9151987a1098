// Package cli provides thin CLI adapters that translate between CLI
// concerns and application services. Adapters handle argument parsing
// and output formatting, but delegate engine logic to services.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/primary"
)

// UpdateAdapter drives the online update walk and renders its progress.
type UpdateAdapter struct {
	service primary.UpdateService
	out     io.Writer
}

// NewUpdateAdapter creates a new UpdateAdapter with the given service.
func NewUpdateAdapter(service primary.UpdateService, out io.Writer) *UpdateAdapter {
	return &UpdateAdapter{
		service: service,
		out:     out,
	}
}

// Run performs an online update for the given region ("" means the
// region of the installed firmware). A non-success outcome is returned
// as an error so the command exits nonzero.
func (a *UpdateAdapter) Run(ctx context.Context, region string) error {
	fmt.Fprintln(a.out, "Checking for updates...")

	progress := func(processed, total int, id title.ID) bool {
		fmt.Fprintf(a.out, "  [%d/%d] %s\n", processed, total, id.Hex())
		return true
	}

	out := a.service.OnlineUpdate(ctx, progress, region)
	return a.render(out)
}

func (a *UpdateAdapter) render(out primary.Outcome) error {
	switch out.Result {
	case primary.AlreadyUpToDate:
		fmt.Fprintf(a.out, "%s Everything is up to date\n", color.New(color.FgGreen).Sprint("✓"))
		return nil
	case primary.Succeeded:
		fmt.Fprintf(a.out, "%s Updated %d title(s)\n", color.New(color.FgGreen).Sprint("✓"), len(out.UpdatedTitles))
		for _, id := range out.UpdatedTitles {
			fmt.Fprintf(a.out, "  %s\n", id.Hex())
		}
		return nil
	}

	if len(out.UpdatedTitles) > 0 {
		fmt.Fprintf(a.out, "Updated %d title(s) before the failure\n", len(out.UpdatedTitles))
	}
	fmt.Fprintf(a.out, "%s %s\n", color.New(color.FgRed).Sprint("✗"), out.Diagnostic())
	return fmt.Errorf("update failed: %s", out.Result)
}
