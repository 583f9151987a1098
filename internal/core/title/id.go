// Package title contains the pure domain model for ticketed titles:
// identifiers, metadata (TMD) parsing, ticket splitting, and region codes.
// This is part of the Functional Core - no I/O, only byte-level decoding.
package title

import (
	"fmt"
	"strconv"
)

// ID is a 64-bit title identifier. The high 32 bits encode the title type
// (system component, channel, ...), the low 32 bits a unique index.
type ID uint64

// Well-known title IDs.
const (
	// SystemMenu is the installed system firmware title. Its metadata
	// carries the device region.
	SystemMenu ID = 0x0000000100000002

	// Boot2 is the immutable boot-stage component. The update engine
	// never touches it.
	Boot2 ID = 0x0000000100000001
)

// typeSystem is the title type of low-level system components.
const typeSystem uint32 = 0x00000001

// Type returns the title type encoded in the high 32 bits.
func (id ID) Type() uint32 {
	return uint32(id >> 32)
}

// IsSystem reports whether the title is a low-level system component
// (boot-stage loaders and system kernels, not channels).
func (id ID) IsSystem() bool {
	return id.Type() == typeSystem
}

// Index returns the unique index in the low 32 bits.
func (id ID) Index() uint32 {
	return uint32(id)
}

// Hex renders the ID as the 16-digit lowercase hex form used in catalog
// responses and download URLs.
func (id ID) Hex() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID decodes a title ID from its 16-hex-digit string form.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid title id %q: %w", s, err)
	}
	return ID(v), nil
}
