package title

// Region is the market region code carried in the TMD header.
type Region uint16

// Known region codes.
const (
	RegionJapan  Region = 0
	RegionUSA    Region = 1
	RegionEurope Region = 2
	RegionKorea  Region = 4
)

// CatalogCode returns the three-letter region identifier the update
// catalog expects. Unknown codes fall back to "EUR".
func (r Region) CatalogCode() string {
	switch r {
	case RegionJapan:
		return "JPN"
	case RegionUSA:
		return "USA"
	case RegionEurope:
		return "EUR"
	case RegionKorea:
		return "KOR"
	default:
		return "EUR"
	}
}
