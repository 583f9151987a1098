package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockImportContext is the handle issued by mockStore.ImportTitleInit.
type mockImportContext struct {
	tmd      *title.TMD
	imported []uint32
	open     bool // a content unit is between Begin and End
}

// mockStore implements secondary.TitleStore with an ordered call log so
// tests can assert protocol order.
type mockStore struct {
	installed      map[title.ID][]byte // raw installed metadata
	storedContents map[title.ID][]title.Content
	deviceID       uint32
	deviceIDErr    error
	sigChecks      bool

	// rejectTicketWhenChecked makes ImportTicket fail with ErrCheckValue
	// while signature checks are enabled (an unsigned package).
	rejectTicketWhenChecked bool
	ticketErr               error
	initErr                 error
	contentErr              map[uint32]error // content id -> error at the data step
	doneErr                 error
	cancelErr               error

	log             []string
	ticketsImported int
	doneCount       int
	cancelCount     int
	invalidateCount int
	liveContexts    int
}

func newMockStore() *mockStore {
	return &mockStore{
		installed:      make(map[title.ID][]byte),
		storedContents: make(map[title.ID][]title.Content),
		contentErr:     make(map[uint32]error),
		sigChecks:      true,
		deviceID:       0x21000000,
	}
}

// install seeds an installed title from raw metadata, with the given
// subset of its contents present on the store.
func (m *mockStore) install(raw []byte, presentContentIDs ...uint32) {
	tmd, err := title.ParseTMD(raw)
	if err != nil {
		panic(err)
	}
	m.installed[tmd.TitleID()] = raw
	var present []title.Content
	for _, c := range tmd.Contents() {
		for _, id := range presentContentIDs {
			if c.ID == id {
				present = append(present, c)
			}
		}
	}
	m.storedContents[tmd.TitleID()] = present
}

func (m *mockStore) ImportTicket(ticket, certs []byte) error {
	m.log = append(m.log, "ticket-import")
	m.ticketsImported++
	if m.rejectTicketWhenChecked && m.sigChecks {
		return secondary.ErrCheckValue
	}
	return m.ticketErr
}

func (m *mockStore) ImportTitleInit(tmdBytes, certs []byte) (secondary.ImportContext, error) {
	tmd, err := title.ParseTMD(tmdBytes)
	if err != nil {
		return nil, err
	}
	m.log = append(m.log, "title-init "+tmd.TitleID().Hex())
	if m.initErr != nil {
		return nil, m.initErr
	}
	m.liveContexts++
	return &mockImportContext{tmd: tmd}, nil
}

func (m *mockStore) ImportContentBegin(ictx secondary.ImportContext, titleID title.ID, contentID uint32) error {
	c := ictx.(*mockImportContext)
	m.log = append(m.log, fmt.Sprintf("content-begin %s %08x", titleID.Hex(), contentID))
	c.imported = append(c.imported, contentID)
	c.open = true
	return nil
}

func (m *mockStore) ImportContentData(ictx secondary.ImportContext, offset uint32, data []byte) error {
	c := ictx.(*mockImportContext)
	if !c.open {
		return errors.New("mock: content data without begin")
	}
	current := c.imported[len(c.imported)-1]
	return m.contentErr[current]
}

func (m *mockStore) ImportContentEnd(ictx secondary.ImportContext) error {
	c := ictx.(*mockImportContext)
	if !c.open {
		return errors.New("mock: content end without begin")
	}
	c.open = false
	return nil
}

func (m *mockStore) ImportTitleDone(ictx secondary.ImportContext) error {
	c := ictx.(*mockImportContext)
	m.log = append(m.log, "title-done "+c.tmd.TitleID().Hex())
	m.liveContexts--
	if m.doneErr != nil {
		return m.doneErr
	}
	m.doneCount++
	// Commit: the title and its imported contents become installed state.
	m.installed[c.tmd.TitleID()] = c.tmd.Bytes()
	var present []title.Content
	for _, content := range c.tmd.Contents() {
		for _, id := range c.imported {
			if content.ID == id {
				present = append(present, content)
			}
		}
		for _, prev := range m.storedContents[c.tmd.TitleID()] {
			if content.ID == prev.ID {
				present = append(present, content)
			}
		}
	}
	m.storedContents[c.tmd.TitleID()] = dedupeContents(present)
	return nil
}

func (m *mockStore) ImportTitleCancel(ictx secondary.ImportContext) error {
	c := ictx.(*mockImportContext)
	m.log = append(m.log, "title-cancel "+c.tmd.TitleID().Hex())
	m.liveContexts--
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelCount++
	return nil
}

func (m *mockStore) FindInstalledTMD(id title.ID) (*title.TMD, error) {
	raw, ok := m.installed[id]
	if !ok {
		return nil, secondary.ErrTitleNotFound
	}
	return title.ParseTMD(raw)
}

func (m *mockStore) StoredContents(tmd *title.TMD) ([]title.Content, error) {
	return m.storedContents[tmd.TitleID()], nil
}

func (m *mockStore) DeviceID() (uint32, error) {
	if m.deviceIDErr != nil {
		return 0, m.deviceIDErr
	}
	return m.deviceID, nil
}

func (m *mockStore) SignatureChecksEnabled() bool { return m.sigChecks }

func (m *mockStore) SetSignatureChecksEnabled(enabled bool) {
	m.log = append(m.log, fmt.Sprintf("sig-checks %t", enabled))
	m.sigChecks = enabled
}

func (m *mockStore) InvalidateContentListing() {
	m.log = append(m.log, "invalidate")
	m.invalidateCount++
}

// mutations returns the store-mutating entries of the call log.
func (m *mockStore) mutations() []string {
	var out []string
	for _, entry := range m.log {
		if strings.HasPrefix(entry, "sig-checks") {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func dedupeContents(contents []title.Content) []title.Content {
	seen := make(map[uint32]bool)
	var out []title.Content
	for _, c := range contents {
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

// logIndex returns the position of the first log entry with the given
// prefix, or -1.
func (m *mockStore) logIndex(prefix string) int {
	for i, entry := range m.log {
		if strings.HasPrefix(entry, prefix) {
			return i
		}
	}
	return -1
}

// mockTransport implements secondary.ContentTransport from a canned
// URL -> body map, recording every request in order.
type mockTransport struct {
	responses    map[string][]byte
	postResponse []byte
	postOK       bool

	gets        []string
	posts       []string
	postBody    []byte
	postHeaders map[string]string
}

func newMockTransport() *mockTransport {
	return &mockTransport{responses: make(map[string][]byte), postOK: true}
}

func (m *mockTransport) Get(ctx context.Context, url string) ([]byte, bool) {
	m.gets = append(m.gets, url)
	body, ok := m.responses[url]
	return body, ok
}

func (m *mockTransport) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, bool) {
	m.posts = append(m.posts, url)
	m.postBody = body
	m.postHeaders = headers
	return m.postResponse, m.postOK
}

// mockJournal implements secondary.JournalRepository in memory.
type mockJournal struct {
	runs   []*secondary.RunRecord
	events []*secondary.TitleEventRecord

	createErr error
}

func (m *mockJournal) CreateRun(ctx context.Context, run *secondary.RunRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockJournal) FinishRun(ctx context.Context, runID, result string, titlesUpdated int) error {
	for _, run := range m.runs {
		if run.ID == runID {
			run.Result = result
			run.TitlesUpdated = titlesUpdated
		}
	}
	return nil
}

func (m *mockJournal) AppendTitleEvent(ctx context.Context, event *secondary.TitleEventRecord) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockJournal) ListRuns(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	return m.runs, nil
}

func (m *mockJournal) ListTitleEvents(ctx context.Context, runID string) ([]*secondary.TitleEventRecord, error) {
	var out []*secondary.TitleEventRecord
	for _, ev := range m.events {
		if ev.RunID == runID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// mockPrompter implements secondary.BypassPrompter with a fixed answer.
type mockPrompter struct {
	answer bool
	asked  []title.ID
}

func (m *mockPrompter) Confirm(id title.ID) bool {
	m.asked = append(m.asked, id)
	return m.answer
}
