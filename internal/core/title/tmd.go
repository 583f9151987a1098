package title

import (
	"encoding/binary"
	"fmt"
)

// Fixed wire sizes of the signed metadata layout. All integers are
// big-endian.
const (
	// TMDHeaderSize is the size of the fixed TMD header, signature
	// included.
	TMDHeaderSize = 0x1E4

	// ContentEntrySize is the size of one content record following the
	// header.
	ContentEntrySize = 36
)

// Byte offsets inside the TMD header.
const (
	offRequiredSystem = 0x184
	offTitleID        = 0x18C
	offRegion         = 0x19C
	offTitleVersion   = 0x1DC
	offContentCount   = 0x1DE
)

// Byte offsets inside one content entry.
const (
	offContentID    = 0
	offContentIndex = 4
	offContentType  = 6
	offContentSize  = 8
	offContentHash  = 16
)

// Content is one downloadable/importable unit of a title. The ID - not
// the index - is the key for deciding whether a unit is already stored.
type Content struct {
	ID    uint32
	Index uint16
	Type  uint16
	Size  uint64
	Hash  [20]byte
}

// TMD is a parsed view over raw title metadata bytes. The raw bytes are
// retained because the secure store imports them verbatim.
type TMD struct {
	raw []byte
}

// ParseTMD validates and wraps raw metadata bytes. The buffer must hold
// the fixed header plus exactly the number of content entries the header
// declares; the content count is read only after the header length check.
func ParseTMD(raw []byte) (*TMD, error) {
	if len(raw) < TMDHeaderSize {
		return nil, fmt.Errorf("tmd: %d bytes, shorter than header (%d)", len(raw), TMDHeaderSize)
	}
	count := int(binary.BigEndian.Uint16(raw[offContentCount:]))
	need := TMDHeaderSize + count*ContentEntrySize
	if len(raw) < need {
		return nil, fmt.Errorf("tmd: %d bytes, need %d for %d contents", len(raw), need, count)
	}
	return &TMD{raw: raw[:need]}, nil
}

// Bytes returns the exact raw metadata, header plus content entries.
func (t *TMD) Bytes() []byte {
	return t.raw
}

// TitleID returns the title this metadata describes.
func (t *TMD) TitleID() ID {
	return ID(binary.BigEndian.Uint64(t.raw[offTitleID:]))
}

// RequiredSystemTitle returns the system title this one depends on, or
// zero when there is no dependency.
func (t *TMD) RequiredSystemTitle() ID {
	return ID(binary.BigEndian.Uint64(t.raw[offRequiredSystem:]))
}

// TitleVersion returns the monotonically increasing title version.
func (t *TMD) TitleVersion() uint16 {
	return binary.BigEndian.Uint16(t.raw[offTitleVersion:])
}

// ContentCount returns the number of content entries.
func (t *TMD) ContentCount() uint16 {
	return binary.BigEndian.Uint16(t.raw[offContentCount:])
}

// Region returns the market region code from the header.
func (t *TMD) Region() Region {
	return Region(binary.BigEndian.Uint16(t.raw[offRegion:]))
}

// Contents returns the content entries in their listed order.
func (t *TMD) Contents() []Content {
	count := int(t.ContentCount())
	contents := make([]Content, 0, count)
	for i := 0; i < count; i++ {
		entry := t.raw[TMDHeaderSize+i*ContentEntrySize:]
		c := Content{
			ID:    binary.BigEndian.Uint32(entry[offContentID:]),
			Index: binary.BigEndian.Uint16(entry[offContentIndex:]),
			Type:  binary.BigEndian.Uint16(entry[offContentType:]),
			Size:  binary.BigEndian.Uint64(entry[offContentSize:]),
		}
		copy(c.Hash[:], entry[offContentHash:offContentHash+20])
		contents = append(contents, c)
	}
	return contents
}

// SplitSignedTMD separates a downloaded metadata payload into the TMD
// bytes and the trailing certificate chain. The payload must be large
// enough for the header before the content count is trusted, and large
// enough for header plus declared contents plus a non-empty chain after.
func SplitSignedTMD(payload []byte) (tmd []byte, certs []byte, err error) {
	if len(payload) <= TMDHeaderSize {
		return nil, nil, fmt.Errorf("signed tmd: %d bytes, shorter than header (%d)", len(payload), TMDHeaderSize)
	}
	count := int(binary.BigEndian.Uint16(payload[offContentCount:]))
	tmdSize := TMDHeaderSize + count*ContentEntrySize
	if len(payload) <= tmdSize {
		return nil, nil, fmt.Errorf("signed tmd: %d bytes, need more than %d for %d contents and cert chain", len(payload), tmdSize, count)
	}
	return payload[:tmdSize], payload[tmdSize:], nil
}
