// Package secondary defines the secondary ports (driven adapters) for the
// engine. These are the interfaces through which the engine drives the
// external systems it depends on: the secure title store, the content
// transport, the install journal and the bypass prompt.
package secondary

import (
	"errors"

	"github.com/example/nusup/internal/core/title"
)

// ErrCheckValue is returned by the store when a signature fails the
// trust check. It is the only rejection the signature-bypass retry may
// act on.
var ErrCheckValue = errors.New("store: untrusted signature")

// ErrTitleNotFound is returned by FindInstalledTMD when no metadata is
// installed for the requested title.
var ErrTitleNotFound = errors.New("store: title not installed")

// ImportContext is the opaque, store-issued handle bounding one title
// import from init to commit/cancel. It is owned by exactly one in-flight
// transaction and destroyed by exactly one of ImportTitleDone or
// ImportTitleCancel.
type ImportContext any

// TitleStore is the secure store the engine installs into. The store owns
// cryptographic verification, persisted installed-title state and the
// import state machine; the engine only drives the protocol.
//
// The store is a single shared critical section for mutation: callers
// must never hold two live ImportContexts at once.
type TitleStore interface {
	// ImportTicket verifies and persists a ticket with its certificate
	// chain.
	ImportTicket(ticket, certs []byte) error

	// ImportTitleInit verifies title metadata and opens an import
	// context for its contents.
	ImportTitleInit(tmd, certs []byte) (ImportContext, error)

	// ImportContentBegin starts the import of one content unit.
	ImportContentBegin(ctx ImportContext, titleID title.ID, contentID uint32) error

	// ImportContentData appends data to the content opened by
	// ImportContentBegin.
	ImportContentData(ctx ImportContext, offset uint32, data []byte) error

	// ImportContentEnd closes the current content unit.
	ImportContentEnd(ctx ImportContext) error

	// ImportTitleDone commits the import and destroys the context.
	ImportTitleDone(ctx ImportContext) error

	// ImportTitleCancel rolls the import back and destroys the context.
	ImportTitleCancel(ctx ImportContext) error

	// FindInstalledTMD returns the installed metadata for a title, or
	// ErrTitleNotFound.
	FindInstalledTMD(id title.ID) (*title.TMD, error)

	// StoredContents returns the content units actually present on the
	// store for the given metadata, queried fresh.
	StoredContents(tmd *title.TMD) ([]title.Content, error)

	// DeviceID returns the store's device identity.
	DeviceID() (uint32, error)

	// SignatureChecksEnabled reports the process-wide signature checking
	// state.
	SignatureChecksEnabled() bool

	// SetSignatureChecksEnabled flips the process-wide signature
	// checking state. Callers that disable checks must restore the prior
	// state on every exit path.
	SetSignatureChecksEnabled(enabled bool)

	// InvalidateContentListing drops any cached view of the store's
	// content listing. Called after a run that committed at least one
	// title, because installed state changed underneath other store
	// consumers.
	InvalidateContentListing()
}

// InstalledTitle is one row of a store listing.
type InstalledTitle struct {
	ID           title.ID
	Version      uint16
	ContentCount uint16
}

// TitleLister is an optional store capability used by the host CLI to
// show installed titles. The engine itself never needs it.
type TitleLister interface {
	InstalledTitles() ([]InstalledTitle, error)
}
