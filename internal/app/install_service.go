package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/primary"
	"github.com/example/nusup/internal/ports/secondary"
)

// InstallService installs a single locally supplied package as one
// all-or-nothing transaction. Unlike the online path it never skips
// contents that are already stored: a local install re-writes everything
// the metadata lists.
type InstallService struct {
	store   secondary.TitleStore
	tx      transaction
	journal journal
	log     *logrus.Logger
}

// NewInstallService creates the package installer. prompter gates the
// signature-bypass retry and may be nil to disallow bypassing; jr may be
// nil to disable journaling; logger may be nil.
func NewInstallService(store secondary.TitleStore, prompter secondary.BypassPrompter, jr secondary.JournalRepository, logger *logrus.Logger) *InstallService {
	if logger == nil {
		logger = logrus.New()
	}
	return &InstallService{
		store:   store,
		tx:      newTransaction(store, prompter, logger),
		journal: journal{repo: jr, log: logger},
		log:     logger,
	}
}

var _ primary.InstallService = (*InstallService)(nil)

// InstallPackage implements primary.InstallService.
func (s *InstallService) InstallPackage(ctx context.Context, pkg primary.Package) primary.Outcome {
	tmd, err := validatePackage(pkg)
	if err != nil {
		s.log.WithError(err).Error("package install: invalid package")
		return primary.Outcome{Result: primary.InvalidPackage}
	}

	titleID := tmd.TitleID()
	runID := s.journal.beginRun(ctx, secondary.RunKindPackage, "")
	out := s.install(ctx, runID, pkg, tmd)
	out.RunID = runID
	s.journal.finishRun(ctx, runID, out.Result, len(out.UpdatedTitles))

	entry := s.log.WithField("title", titleID.Hex())
	if out.Result.OK() {
		entry.Info("package install finished")
	} else {
		entry.WithField("result", out.Result.String()).Error("package install failed")
	}
	return out
}

func (s *InstallService) install(ctx context.Context, runID string, pkg primary.Package, tmd *title.TMD) primary.Outcome {
	titleID := tmd.TitleID()

	ictx, err := s.tx.begin(pkg.Ticket, pkg.CertChain, tmd, true)
	if err != nil {
		s.journal.titleEvent(ctx, runID, titleID, secondary.TitleEventFailed, "import init: "+err.Error())
		return primary.Outcome{Result: primary.ImportInitFailed, FailedTitle: titleID}
	}

	allOK := true
	var failedContent uint32
	for i, content := range tmd.Contents() {
		if err := s.tx.importContent(ictx, titleID, content.ID, pkg.Contents[i]); err != nil {
			s.log.WithError(err).Errorf("package install: content %08x failed", content.ID)
			failedContent = content.ID
			allOK = false
			break
		}
	}

	if err := s.tx.finalize(ictx, allOK); err != nil {
		s.journal.titleEvent(ctx, runID, titleID, secondary.TitleEventFailed, "finalize: "+err.Error())
		return primary.Outcome{Result: primary.ImportFinalizeFailed, FailedTitle: titleID, FailedContent: failedContent}
	}
	if !allOK {
		s.journal.titleEvent(ctx, runID, titleID, secondary.TitleEventFailed, fmt.Sprintf("content %08x", failedContent))
		return primary.Outcome{Result: primary.ImportFailed, FailedTitle: titleID, FailedContent: failedContent}
	}

	s.store.InvalidateContentListing()
	s.journal.titleEvent(ctx, runID, titleID, secondary.TitleEventInstalled, fmt.Sprintf("version %d", tmd.TitleVersion()))
	return primary.Outcome{Result: primary.Succeeded, UpdatedTitles: []title.ID{titleID}}
}

// validatePackage checks the package is well-formed: parsable metadata,
// a ticket with certificate chain, and one blob per listed content.
func validatePackage(pkg primary.Package) (*title.TMD, error) {
	if len(pkg.Ticket) == 0 || len(pkg.CertChain) == 0 {
		return nil, fmt.Errorf("package: missing ticket or certificate chain")
	}
	tmd, err := title.ParseTMD(pkg.TMD)
	if err != nil {
		return nil, fmt.Errorf("package: %w", err)
	}
	if len(pkg.Contents) != int(tmd.ContentCount()) {
		return nil, fmt.Errorf("package: %d content blobs for %d metadata entries", len(pkg.Contents), tmd.ContentCount())
	}
	return tmd, nil
}
