package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/primary"
)

// InstallAdapter loads a local title package from a directory and
// installs it.
//
// A package directory contains ticket.bin, tmd.bin, certs.bin and one
// <content id>.app file per content the metadata lists.
type InstallAdapter struct {
	service primary.InstallService
	out     io.Writer
}

// NewInstallAdapter creates a new InstallAdapter with the given service.
func NewInstallAdapter(service primary.InstallService, out io.Writer) *InstallAdapter {
	return &InstallAdapter{
		service: service,
		out:     out,
	}
}

// Install loads the package at dir and installs it.
func (a *InstallAdapter) Install(ctx context.Context, dir string) error {
	pkg, err := loadPackage(dir)
	if err != nil {
		return err
	}

	out := a.service.InstallPackage(ctx, pkg)
	if !out.Result.OK() {
		fmt.Fprintf(a.out, "%s %s\n", color.New(color.FgRed).Sprint("✗"), out.Diagnostic())
		return fmt.Errorf("install failed: %s", out.Result)
	}

	fmt.Fprintf(a.out, "%s Installed %s\n", color.New(color.FgGreen).Sprint("✓"), out.UpdatedTitles[0].Hex())
	return nil
}

func loadPackage(dir string) (primary.Package, error) {
	var pkg primary.Package
	var err error

	if pkg.Ticket, err = os.ReadFile(filepath.Join(dir, "ticket.bin")); err != nil {
		return primary.Package{}, fmt.Errorf("failed to read ticket: %w", err)
	}
	if pkg.TMD, err = os.ReadFile(filepath.Join(dir, "tmd.bin")); err != nil {
		return primary.Package{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	if pkg.CertChain, err = os.ReadFile(filepath.Join(dir, "certs.bin")); err != nil {
		return primary.Package{}, fmt.Errorf("failed to read certificate chain: %w", err)
	}

	tmd, err := title.ParseTMD(pkg.TMD)
	if err != nil {
		return primary.Package{}, fmt.Errorf("invalid metadata: %w", err)
	}
	for _, c := range tmd.Contents() {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%08x.app", c.ID)))
		if err != nil {
			return primary.Package{}, fmt.Errorf("failed to read content %08x: %w", c.ID, err)
		}
		pkg.Contents = append(pkg.Contents, data)
	}
	return pkg, nil
}
