package title

import "encoding/binary"

// TMDParams are the logical header fields of synthetic metadata.
type TMDParams struct {
	TitleID             ID
	RequiredSystemTitle ID
	Version             uint16
	Region              Region
}

// EncodeTMD builds raw metadata bytes from logical fields. The engine
// only ever parses metadata; this encoder exists for tooling and tests
// that need synthetic titles.
func EncodeTMD(p TMDParams, contents []Content) []byte {
	raw := make([]byte, TMDHeaderSize+len(contents)*ContentEntrySize)
	binary.BigEndian.PutUint64(raw[offRequiredSystem:], uint64(p.RequiredSystemTitle))
	binary.BigEndian.PutUint64(raw[offTitleID:], uint64(p.TitleID))
	binary.BigEndian.PutUint16(raw[offRegion:], uint16(p.Region))
	binary.BigEndian.PutUint16(raw[offTitleVersion:], p.Version)
	binary.BigEndian.PutUint16(raw[offContentCount:], uint16(len(contents)))
	for i, c := range contents {
		entry := raw[TMDHeaderSize+i*ContentEntrySize:]
		binary.BigEndian.PutUint32(entry[offContentID:], c.ID)
		binary.BigEndian.PutUint16(entry[offContentIndex:], c.Index)
		binary.BigEndian.PutUint16(entry[offContentType:], c.Type)
		binary.BigEndian.PutUint64(entry[offContentSize:], c.Size)
		copy(entry[offContentHash:], c.Hash[:])
	}
	return raw
}
