package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/catalog"
	"github.com/example/nusup/internal/core/title"
)

// ============================================================================
// Shared fixtures
// ============================================================================

const testPrefix = "http://ccs.test.invalid/ccs/download"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testTMD builds raw metadata for a title whose contents are identified
// by the given ids, indexed in order.
func testTMD(id, requiredSystem title.ID, version uint16, contentIDs ...uint32) []byte {
	contents := make([]title.Content, len(contentIDs))
	for i, cid := range contentIDs {
		contents[i] = title.Content{ID: cid, Index: uint16(i), Type: 1, Size: 64}
	}
	return title.EncodeTMD(title.TMDParams{
		TitleID:             id,
		RequiredSystemTitle: requiredSystem,
		Version:             version,
		Region:              title.RegionEurope,
	}, contents)
}

// testCetk builds a downloadable ticket payload: ticket plus a small
// certificate chain.
func testCetk() []byte {
	payload := make([]byte, title.TicketSize+16)
	for i := range payload {
		payload[i] = byte(i)
	}
	return payload
}

// signedTMD appends a small certificate chain to raw metadata, matching
// what the content server returns for /tmd.
func signedTMD(raw []byte) []byte {
	return append(append([]byte{}, raw...), 0xCE, 0x27, 0x10, 0x09)
}

// catalogResponse renders a well-formed catalog response for the given
// entries.
func catalogResponse(prefix string, entries ...catalog.Entry) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>`)
	b.WriteString(`<nus:GetSystemUpdateResponse xmlns:nus="urn:nus.wsapi.broadon.com">`)
	b.WriteString(`<nus:ErrorCode>0</nus:ErrorCode>`)
	b.WriteString(`<nus:ContentPrefixURL>` + prefix + `</nus:ContentPrefixURL>`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<nus:TitleVersion><nus:TitleId>%s</nus:TitleId><nus:Version>%d</nus:Version></nus:TitleVersion>`, e.ID.Hex(), e.Version)
	}
	b.WriteString(`</nus:GetSystemUpdateResponse></soapenv:Body></soapenv:Envelope>`)
	return []byte(b.String())
}

// serveTitle wires a full download set for one title into the transport:
// cetk, tmd (latest and versioned), and every content body.
func serveTitle(transport *mockTransport, raw []byte, version uint16) {
	tmd, err := title.ParseTMD(raw)
	if err != nil {
		panic(err)
	}
	hex := tmd.TitleID().Hex()
	transport.responses[testPrefix+"/"+hex+"/cetk"] = testCetk()
	transport.responses[testPrefix+"/"+hex+"/tmd"] = signedTMD(raw)
	if version != 0 {
		transport.responses[fmt.Sprintf("%s/%s/tmd.%d", testPrefix, hex, version)] = signedTMD(raw)
	}
	for _, c := range tmd.Contents() {
		transport.responses[fmt.Sprintf("%s/%s/%08x", testPrefix, hex, c.ID)] = []byte{0xDA, 0x7A}
	}
}

func newTestCatalogClient(store *mockStore, transport *mockTransport) *CatalogClient {
	return NewCatalogClient(store, transport, CatalogConfig{
		Endpoint:   "http://nus.test.invalid/nus/services/NetUpdateSOAP",
		SOAPAction: "urn:nus.wsapi.broadon.com/GetSystemUpdate",
		UserAgent:  "wii libnup/1.0",
	}, testLogger())
}

func newTestUpdateService(store *mockStore, transport *mockTransport, jr *mockJournal) *UpdateService {
	client := newTestCatalogClient(store, transport)
	if jr == nil {
		// Pass an untyped nil so the journal helper sees no repository.
		return NewUpdateService(store, transport, client, nil, testLogger())
	}
	return NewUpdateService(store, transport, client, jr, testLogger())
}
