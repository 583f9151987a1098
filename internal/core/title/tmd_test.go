package title

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTMD constructs synthetic metadata bytes for parser tests.
func buildTMD(id ID, requiredSystem ID, version uint16, region Region, contents []Content) []byte {
	return EncodeTMD(TMDParams{
		TitleID:             id,
		RequiredSystemTitle: requiredSystem,
		Version:             version,
		Region:              region,
	}, contents)
}

func TestParseTMD(t *testing.T) {
	contents := []Content{
		{ID: 0x1a, Index: 0, Type: 1, Size: 64},
		{ID: 0x2b, Index: 1, Type: 1, Size: 128},
	}
	raw := buildTMD(0x0000000100000002, 0x000000010000003c, 513, RegionEurope, contents)

	tmd, err := ParseTMD(raw)
	require.NoError(t, err)
	require.Equal(t, ID(0x0000000100000002), tmd.TitleID())
	require.Equal(t, ID(0x000000010000003c), tmd.RequiredSystemTitle())
	require.Equal(t, uint16(513), tmd.TitleVersion())
	require.Equal(t, uint16(2), tmd.ContentCount())
	require.Equal(t, RegionEurope, tmd.Region())
	require.Equal(t, contents, tmd.Contents())
	require.Equal(t, raw, tmd.Bytes())
}

func TestParseTMDRejectsShortBuffers(t *testing.T) {
	t.Run("shorter than header", func(t *testing.T) {
		_, err := ParseTMD(make([]byte, TMDHeaderSize-1))
		require.Error(t, err)
	})

	t.Run("truncated content table", func(t *testing.T) {
		raw := buildTMD(1, 0, 1, RegionJapan, []Content{{ID: 1}, {ID: 2}})
		_, err := ParseTMD(raw[:len(raw)-1])
		require.Error(t, err)
	})
}

func TestParseTMDTrimsTrailingBytes(t *testing.T) {
	raw := buildTMD(1, 0, 1, RegionUSA, []Content{{ID: 7}})
	tmd, err := ParseTMD(append(raw, 0xFF, 0xFF))
	require.NoError(t, err)
	require.Len(t, tmd.Bytes(), len(raw))
}

func TestSplitSignedTMD(t *testing.T) {
	raw := buildTMD(1, 0, 1, RegionEurope, []Content{{ID: 7}})

	t.Run("splits tmd and cert chain", func(t *testing.T) {
		payload := append(append([]byte{}, raw...), 0xAA, 0xBB, 0xCC)
		tmd, certs, err := SplitSignedTMD(payload)
		require.NoError(t, err)
		require.Equal(t, raw, tmd)
		require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, certs)
	})

	t.Run("rejects payload without cert chain", func(t *testing.T) {
		_, _, err := SplitSignedTMD(raw)
		require.Error(t, err)
	})

	t.Run("rejects payload shorter than header", func(t *testing.T) {
		_, _, err := SplitSignedTMD(make([]byte, TMDHeaderSize))
		require.Error(t, err)
	})

	t.Run("rejects truncated content table", func(t *testing.T) {
		// Header is complete and declares two contents, but only part of
		// the table follows.
		lying := buildTMD(1, 0, 1, RegionEurope, []Content{{ID: 1}, {ID: 2}})
		_, _, err := SplitSignedTMD(lying[:TMDHeaderSize+ContentEntrySize])
		require.Error(t, err)
	})
}

func TestSplitTicket(t *testing.T) {
	t.Run("splits ticket and cert chain", func(t *testing.T) {
		payload := make([]byte, TicketSize+4)
		payload[TicketSize] = 0xEE
		ticket, certs, err := SplitTicket(payload)
		require.NoError(t, err)
		require.Len(t, ticket, TicketSize)
		require.Equal(t, []byte{0xEE, 0, 0, 0}, certs)
	})

	t.Run("rejects exact ticket size", func(t *testing.T) {
		_, _, err := SplitTicket(make([]byte, TicketSize))
		require.Error(t, err)
	})
}
