package primary

import "context"

// Package is a decoded local title package: the ticket, the certificate
// chain, the metadata, and one blob per content entry in metadata order.
// Decoding the container format that produces it is the business of an
// external tool.
type Package struct {
	Ticket    []byte
	CertChain []byte
	TMD       []byte
	Contents  [][]byte
}

// InstallService drives a single local package install.
type InstallService interface {
	// InstallPackage validates pkg and imports it as one all-or-nothing
	// transaction. A local install always re-writes every content unit,
	// even those already stored.
	InstallPackage(ctx context.Context, pkg Package) Outcome
}

// UpdateService drives a full online update against the remote catalog.
type UpdateService interface {
	// OnlineUpdate fetches the catalog and installs whatever is missing,
	// in server order, resolving per-title dependencies recursively.
	// region overrides the device region when non-empty. progress may be
	// nil.
	OnlineUpdate(ctx context.Context, progress ProgressFunc, region string) Outcome
}
