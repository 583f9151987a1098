package secondary

import "github.com/example/nusup/internal/core/title"

// BypassPrompter gates the one-shot signature-bypass retry on the local
// package path. Implementations ask the user whether an unsigned package
// may be imported anyway.
type BypassPrompter interface {
	// Confirm reports whether the user allows importing the given title
	// without a trusted signature.
	Confirm(id title.ID) bool
}
