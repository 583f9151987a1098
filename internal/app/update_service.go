package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/catalog"
	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/primary"
	"github.com/example/nusup/internal/ports/secondary"
)

// UpdateService walks the remote catalog in server order, resolves
// per-title dependencies recursively, downloads and imports only missing
// content, and reports progress. The walk is strictly sequential; at most
// one import context is live at any time.
type UpdateService struct {
	store     secondary.TitleStore
	transport secondary.ContentTransport
	catalog   *CatalogClient
	tx        transaction
	journal   journal
	log       *logrus.Logger
}

// NewUpdateService creates the online update orchestrator. jr may be nil
// to disable journaling; logger may be nil.
func NewUpdateService(store secondary.TitleStore, transport secondary.ContentTransport, catalogClient *CatalogClient, jr secondary.JournalRepository, logger *logrus.Logger) *UpdateService {
	if logger == nil {
		logger = logrus.New()
	}
	return &UpdateService{
		store:     store,
		transport: transport,
		catalog:   catalogClient,
		tx:        newTransaction(store, nil, logger),
		journal:   journal{repo: jr, log: logger},
		log:       logger,
	}
}

var _ primary.UpdateService = (*UpdateService)(nil)

// runState is the per-run bookkeeping of the catalog walk.
type runState struct {
	runID string

	// updated is the append-only set of titles committed during this
	// run; order preserves commit order for reporting.
	updated map[title.ID]bool
	order   []title.ID

	// resolving guards the dependency recursion against cycles in
	// catalog data. Defensive; a cycle is not an expected case.
	resolving map[title.ID]bool
}

// OnlineUpdate implements primary.UpdateService.
func (s *UpdateService) OnlineUpdate(ctx context.Context, progress primary.ProgressFunc, region string) primary.Outcome {
	cat, usedRegion := s.catalog.Fetch(ctx, region)
	runID := s.journal.beginRun(ctx, secondary.RunKindOnline, usedRegion)

	st := &runState{
		runID:     runID,
		updated:   make(map[title.ID]bool),
		resolving: make(map[title.ID]bool),
	}
	out := s.walk(ctx, progress, cat, st)
	out.UpdatedTitles = st.order
	out.RunID = runID

	// Installed state changed underneath other store consumers; drop
	// their cached content listing. Exactly once per run, and only when
	// the run committed something.
	if len(st.order) > 0 {
		s.store.InvalidateContentListing()
	}

	s.journal.finishRun(ctx, runID, out.Result, len(st.order))
	if out.Result.OK() {
		s.log.WithField("updated", len(st.order)).Info("online update finished")
	} else {
		s.log.WithField("result", out.Result.String()).Error("online update failed")
	}
	return out
}

// walk processes the catalog entries in server order. The first
// non-success halts the entire run; there is no best-effort continuation
// across remaining titles.
func (s *UpdateService) walk(ctx context.Context, progress primary.ProgressFunc, cat catalog.Catalog, st *runState) primary.Outcome {
	if len(cat.Titles) == 0 {
		return primary.Outcome{Result: primary.ServerFailed}
	}

	total := len(cat.Titles)
	for i, entry := range cat.Titles {
		// Cooperative cancellation, checked only at entry boundaries.
		// Titles committed by earlier entries stay committed.
		if ctx.Err() != nil {
			return primary.Outcome{Result: primary.Cancelled, FailedTitle: entry.ID}
		}
		if progress != nil && !progress(i, total, entry.ID) {
			return primary.Outcome{Result: primary.Cancelled, FailedTitle: entry.ID}
		}

		if out := s.installMissing(ctx, st, cat.ContentPrefixURL, entry); out.Result != primary.Succeeded {
			s.log.WithField("title", entry.ID.Hex()).Error("update aborted")
			return out
		}

		if progress != nil {
			progress(i+1, total, entry.ID)
		}
	}

	if len(st.order) == 0 {
		return primary.Outcome{Result: primary.AlreadyUpToDate}
	}
	return primary.Outcome{Result: primary.Succeeded}
}

// installMissing brings one title up to the catalog's target version,
// recursively installing its required system title first. Up-to-date
// titles are a no-op without any network call.
func (s *UpdateService) installMissing(ctx context.Context, st *runState, prefix string, entry catalog.Entry) primary.Outcome {
	// The boot-stage component is never updated by this engine.
	if entry.ID == title.Boot2 {
		return primary.Outcome{Result: primary.Succeeded}
	}

	if st.updated[entry.ID] || !s.shouldInstall(entry) {
		s.journal.titleEvent(ctx, st.runID, entry.ID, secondary.TitleEventSkipped, "already current")
		return primary.Outcome{Result: primary.Succeeded}
	}

	if st.resolving[entry.ID] {
		s.log.WithField("title", entry.ID.Hex()).Warn("dependency cycle in catalog data, not recursing")
		return primary.Outcome{Result: primary.Succeeded}
	}
	st.resolving[entry.ID] = true
	defer delete(st.resolving, entry.ID)

	s.log.WithField("title", entry.ID.Hex()).Info("updating title")

	fail := func(result primary.Result, contentID uint32, detail string) primary.Outcome {
		s.journal.titleEvent(ctx, st.runID, entry.ID, secondary.TitleEventFailed, detail)
		return primary.Outcome{Result: result, FailedTitle: entry.ID, FailedContent: contentID}
	}

	// Ticket and certificate chain.
	cetk, ok := s.transport.Get(ctx, fmt.Sprintf("%s/%s/cetk", prefix, entry.ID.Hex()))
	if !ok {
		return fail(primary.DownloadFailed, 0, "ticket download failed")
	}
	ticket, ticketCerts, err := title.SplitTicket(cetk)
	if err != nil {
		return fail(primary.DownloadFailed, 0, "ticket: "+err.Error())
	}
	if err := s.store.ImportTicket(ticket, ticketCerts); err != nil {
		return fail(primary.ImportFailed, 0, "ticket import: "+err.Error())
	}

	// Metadata.
	tmd, tmdCerts, out := s.downloadTMD(ctx, prefix, entry)
	if out.Result != primary.Succeeded {
		s.journal.titleEvent(ctx, st.runID, entry.ID, secondary.TitleEventFailed, "metadata download failed")
		return out
	}

	// Required system title first. Target version 0 means latest.
	if dep := tmd.RequiredSystemTitle(); dep != 0 && dep.IsSystem() {
		if _, err := s.store.FindInstalledTMD(dep); err != nil {
			s.log.WithField("title", dep.Hex()).Info("installing required system title first")
			if depOut := s.installMissing(ctx, st, prefix, catalog.Entry{ID: dep}); depOut.Result != primary.Succeeded {
				return depOut
			}
		}
	}

	// The ticket is already imported; begin the title import phase only.
	ictx, err := s.tx.beginTitle(tmd, tmdCerts)
	if err != nil {
		return fail(primary.ImportFailed, 0, "import init: "+err.Error())
	}

	// Content ids already on the store, queried fresh. Identifiers, not
	// indices, decide what can be skipped.
	stored := make(map[uint32]bool)
	if storedContents, err := s.store.StoredContents(tmd); err == nil {
		for _, c := range storedContents {
			stored[c.ID] = true
		}
	}

	allOK := true
	var failResult primary.Result
	var failedContent uint32
	var failDetail string
	for _, content := range tmd.Contents() {
		if stored[content.ID] {
			continue
		}

		data, ok := s.transport.Get(ctx, fmt.Sprintf("%s/%s/%08x", prefix, entry.ID.Hex(), content.ID))
		if !ok {
			allOK, failResult, failedContent = false, primary.DownloadFailed, content.ID
			failDetail = fmt.Sprintf("content %08x download failed", content.ID)
			break
		}
		if err := s.tx.importContent(ictx, entry.ID, content.ID, data); err != nil {
			allOK, failResult, failedContent = false, primary.ImportFailed, content.ID
			failDetail = fmt.Sprintf("content %08x import: %v", content.ID, err)
			break
		}
	}

	if err := s.tx.finalize(ictx, allOK); err != nil {
		return fail(primary.ImportFinalizeFailed, failedContent, "finalize: "+err.Error())
	}
	if !allOK {
		return fail(failResult, failedContent, failDetail)
	}

	st.updated[entry.ID] = true
	st.order = append(st.order, entry.ID)
	s.journal.titleEvent(ctx, st.runID, entry.ID, secondary.TitleEventInstalled, fmt.Sprintf("version %d", tmd.TitleVersion()))
	return primary.Outcome{Result: primary.Succeeded}
}

// downloadTMD fetches and size-validates the metadata for entry. Target
// version 0 selects the latest metadata.
func (s *UpdateService) downloadTMD(ctx context.Context, prefix string, entry catalog.Entry) (*title.TMD, []byte, primary.Outcome) {
	url := fmt.Sprintf("%s/%s/tmd", prefix, entry.ID.Hex())
	if entry.Version != 0 {
		url = fmt.Sprintf("%s.%d", url, entry.Version)
	}

	failed := primary.Outcome{Result: primary.DownloadFailed, FailedTitle: entry.ID}

	payload, ok := s.transport.Get(ctx, url)
	if !ok {
		return nil, nil, failed
	}
	tmdBytes, certs, err := title.SplitSignedTMD(payload)
	if err != nil {
		s.log.WithError(err).WithField("title", entry.ID.Hex()).Error("undersized metadata response")
		return nil, nil, failed
	}
	tmd, err := title.ParseTMD(tmdBytes)
	if err != nil {
		return nil, nil, failed
	}
	return tmd, certs, primary.Outcome{Result: primary.Succeeded}
}

// shouldInstall is the idempotent skip-if-current test: installed
// version at or above the target and every content the installed
// metadata lists actually present on the store.
func (s *UpdateService) shouldInstall(entry catalog.Entry) bool {
	installed, err := s.store.FindInstalledTMD(entry.ID)
	if err != nil {
		return true
	}
	stored, err := s.store.StoredContents(installed)
	if err != nil {
		return true
	}
	return !(installed.TitleVersion() >= entry.Version && len(stored) == int(installed.ContentCount()))
}
