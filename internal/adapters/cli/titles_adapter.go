package cli

import (
	"fmt"
	"io"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// TitlesAdapter renders the store's installed-title listing.
type TitlesAdapter struct {
	lister secondary.TitleLister
	out    io.Writer
}

// NewTitlesAdapter creates a new TitlesAdapter with the given lister.
func NewTitlesAdapter(lister secondary.TitleLister, out io.Writer) *TitlesAdapter {
	return &TitlesAdapter{
		lister: lister,
		out:    out,
	}
}

// List prints every installed title.
func (a *TitlesAdapter) List() error {
	titles, err := a.lister.InstalledTitles()
	if err != nil {
		return fmt.Errorf("failed to list titles: %w", err)
	}

	if len(titles) == 0 {
		fmt.Fprintln(a.out, "No titles installed")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-18s %-8s %-9s %s\n", "TITLE ID", "VERSION", "CONTENTS", "KIND")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────")
	for _, t := range titles {
		fmt.Fprintf(a.out, "%-18s %-8d %-9d %s\n", t.ID.Hex(), t.Version, t.ContentCount, titleKind(t.ID))
	}
	fmt.Fprintln(a.out)

	return nil
}

func titleKind(id title.ID) string {
	switch {
	case id == title.SystemMenu:
		return "system menu"
	case id == title.Boot2:
		return "boot stage"
	case id.IsSystem():
		return "system"
	default:
		return "channel"
	}
}
