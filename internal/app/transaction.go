// Package app contains the application services that orchestrate the
// install/update engine: the shared install transaction, the local
// package installer, the catalog client and the online update walk.
package app

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// transaction wraps the store's begin/import/finalize sequence into one
// all-or-nothing unit. It is shared by the package installer (bypass
// prompt allowed, every content re-imported) and the online update path
// (no bypass, skip-if-present) and parameterized by the caller, not by
// subclassing.
type transaction struct {
	store    secondary.TitleStore
	prompter secondary.BypassPrompter // nil when bypass can never be offered
	log      *logrus.Logger
}

func newTransaction(store secondary.TitleStore, prompter secondary.BypassPrompter, log *logrus.Logger) transaction {
	if log == nil {
		log = logrus.New()
	}
	return transaction{store: store, prompter: prompter, log: log}
}

// begin imports the ticket and initialises the title import.
//
// When the store rejects either step specifically because the signature
// is untrusted, signature checks are currently enabled, allowBypass is
// set and the prompter agrees, checking is disabled for exactly one
// retry of both steps and the prior state is restored no matter how the
// retry ends. The checking state is process-wide; it must never leak
// into unrelated calls.
func (t transaction) begin(ticket, certs []byte, tmd *title.TMD, allowBypass bool) (secondary.ImportContext, error) {
	ictx, err := t.tryBegin(ticket, certs, tmd)
	if err == nil {
		return ictx, nil
	}

	canBypass := allowBypass && t.prompter != nil &&
		errors.Is(err, secondary.ErrCheckValue) &&
		t.store.SignatureChecksEnabled()
	if !canBypass || !t.prompter.Confirm(tmd.TitleID()) {
		return nil, err
	}

	t.log.WithField("title", tmd.TitleID().Hex()).Warn("importing with signature checks bypassed")
	return t.beginUnchecked(ticket, certs, tmd)
}

// beginUnchecked runs one begin attempt with signature checks disabled,
// restoring the prior state on every exit path.
func (t transaction) beginUnchecked(ticket, certs []byte, tmd *title.TMD) (secondary.ImportContext, error) {
	prev := t.store.SignatureChecksEnabled()
	t.store.SetSignatureChecksEnabled(false)
	defer t.store.SetSignatureChecksEnabled(prev)
	return t.tryBegin(ticket, certs, tmd)
}

func (t transaction) tryBegin(ticket, certs []byte, tmd *title.TMD) (secondary.ImportContext, error) {
	if err := t.store.ImportTicket(ticket, certs); err != nil {
		return nil, err
	}
	return t.store.ImportTitleInit(tmd.Bytes(), certs)
}

// beginTitle initialises the title import only. Used on the online path,
// where the ticket was already imported before dependency resolution.
func (t transaction) beginTitle(tmd *title.TMD, certs []byte) (secondary.ImportContext, error) {
	return t.store.ImportTitleInit(tmd.Bytes(), certs)
}

// importContent imports one content unit. A failure at any sub-step
// fails the whole unit; there is no partial retry.
func (t transaction) importContent(ictx secondary.ImportContext, titleID title.ID, contentID uint32, data []byte) error {
	if err := t.store.ImportContentBegin(ictx, titleID, contentID); err != nil {
		return err
	}
	if err := t.store.ImportContentData(ictx, 0, data); err != nil {
		return err
	}
	return t.store.ImportContentEnd(ictx)
}

// finalize commits when every content unit succeeded (or was skipped as
// already present), cancels otherwise. Either way the context is
// destroyed; a finalize failure is reported, never retried.
func (t transaction) finalize(ictx secondary.ImportContext, allContentsOK bool) error {
	if allContentsOK {
		return t.store.ImportTitleDone(ictx)
	}
	return t.store.ImportTitleCancel(ictx)
}
