// Package catalog contains the pure codec for the remote update catalog
// protocol: building the fixed SOAP request envelope and parsing the
// response into an ordered title list. No I/O happens here.
package catalog

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/nusup/internal/core/title"
)

// Entry is one catalog line: a title and the version the server offers.
// Version 0 means "latest".
type Entry struct {
	ID      title.ID
	Version uint16
}

// Catalog is the parsed update catalog. The server's document order is
// preserved; the orchestrator treats it as a hint only and resolves
// dependencies itself.
type Catalog struct {
	ContentPrefixURL string
	Titles           []Entry
}

// requestTemplate is the fixed request envelope. Only DeviceId and
// RegionId are caller-filled.
const requestTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
  xmlns:xsd="http://www.w3.org/2001/XMLSchema"
  xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <soapenv:Body>
    <GetSystemUpdateRequest xmlns="urn:nus.wsapi.broadon.com">
      <Version>1.0</Version>
      <MessageId>0</MessageId>
      <DeviceId>%s</DeviceId>
      <RegionId>%s</RegionId>
    </GetSystemUpdateRequest>
  </soapenv:Body>
</soapenv:Envelope>
`

// Request renders the catalog request envelope for the given device id
// and region. Both values may be empty; the server does not verify them.
func Request(deviceID, region string) []byte {
	return []byte(fmt.Sprintf(requestTemplate, escape(deviceID), escape(region)))
}

func escape(s string) string {
	var b strings.Builder
	// EscapeText on a Builder never fails.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// updateResponse mirrors the GetSystemUpdateResponse element. Tags carry
// no namespace so matching is by local name, which is what the protocol
// requires: responses arrive with varying namespace prefixes.
type updateResponse struct {
	ErrorCode        int    `xml:"ErrorCode"`
	ContentPrefixURL string `xml:"ContentPrefixURL"`
	Titles           []struct {
		TitleID string `xml:"TitleId"`
		Version string `xml:"Version"`
	} `xml:"TitleVersion"`
}

// ParseResponse decodes a catalog response. The response element is
// located anywhere in the document by local name. A nonzero ErrorCode or
// an empty content prefix URL is a hard failure.
//
// The content prefix is forced to plain http: the secure scheme would
// require a device client certificate this engine does not possess, and
// content authenticity is enforced by the secure store's signature
// checks, not by the transport.
func ParseResponse(data []byte) (Catalog, error) {
	node, err := findResponseElement(data)
	if err != nil {
		return Catalog{}, err
	}

	if node.ErrorCode != 0 {
		return Catalog{}, fmt.Errorf("catalog: server error code %d", node.ErrorCode)
	}

	prefix := strings.ReplaceAll(node.ContentPrefixURL, "https://", "http://")
	if prefix == "" {
		return Catalog{}, fmt.Errorf("catalog: empty content prefix URL")
	}

	out := Catalog{ContentPrefixURL: prefix}
	for _, tn := range node.Titles {
		id, err := title.ParseID(tn.TitleID)
		if err != nil {
			return Catalog{}, fmt.Errorf("catalog: %w", err)
		}
		version, err := strconv.ParseUint(tn.Version, 10, 16)
		if err != nil {
			return Catalog{}, fmt.Errorf("catalog: invalid version %q for title %s: %w", tn.Version, id.Hex(), err)
		}
		out.Titles = append(out.Titles, Entry{ID: id, Version: uint16(version)})
	}
	return out, nil
}

// findResponseElement walks the token stream until it reaches the
// response element, then decodes just that subtree.
func findResponseElement(data []byte) (*updateResponse, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("catalog: no GetSystemUpdateResponse element: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "GetSystemUpdateResponse" {
			continue
		}
		var node updateResponse
		if err := dec.DecodeElement(&node, &start); err != nil {
			return nil, fmt.Errorf("catalog: malformed response element: %w", err)
		}
		return &node, nil
	}
}
