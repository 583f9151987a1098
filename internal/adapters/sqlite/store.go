// Package sqlite contains SQLite implementations of the engine's
// secondary ports: the reference title store and the run journal.
package sqlite

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// Signature types accepted at the head of a signed blob.
const (
	sigTypeRSA4096 = 0x00010000
	sigTypeRSA2048 = 0x00010001
	sigTypeECC     = 0x00010002
)

const (
	settingDeviceID        = "device_id"
	settingSignatureChecks = "signature_checks"
)

// TitleStore is the reference secondary.TitleStore backed by SQLite. It
// persists titles, tickets and contents; the import state machine lives
// in memory until commit. At most one import context may be live.
//
// Verification here is structural: signed blobs must open with a known
// signature type, and content data must match the size and hash its
// metadata entry declares. A zeroed or unknown signature type is the
// untrusted-signature rejection the bypass flow may act on.
type TitleStore struct {
	db  *sql.DB
	log *logrus.Logger

	mu            sync.Mutex
	sigChecks     bool
	pendingTicket []byte
	pendingCerts  []byte
	open          *importState
	listing       []secondary.InstalledTitle // nil when invalidated
}

var (
	_ secondary.TitleStore  = (*TitleStore)(nil)
	_ secondary.TitleLister = (*TitleStore)(nil)
)

// importState is the in-memory import context between ImportTitleInit
// and ImportTitleDone/Cancel.
type importState struct {
	tmd      *title.TMD
	certs    []byte
	imported map[uint32][]byte
	current  *contentBuffer
}

type contentBuffer struct {
	meta title.Content
	data []byte
}

// NewTitleStore creates the store, loading the signature-check state and
// seeding a device identity on first use. logger may be nil.
func NewTitleStore(db *sql.DB, logger *logrus.Logger) (*TitleStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	s := &TitleStore{db: db, log: logger, sigChecks: true}

	checks, err := s.readSetting(settingSignatureChecks)
	switch {
	case err == sql.ErrNoRows:
		if err := s.writeSetting(settingSignatureChecks, "true"); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	default:
		s.sigChecks = checks == "true"
	}

	if _, err := s.readSetting(settingDeviceID); err == sql.ErrNoRows {
		u := uuid.New()
		id := binary.BigEndian.Uint32(u[:4])
		if err := s.writeSetting(settingDeviceID, strconv.FormatUint(uint64(id), 10)); err != nil {
			return nil, err
		}
		s.log.WithField("device_id", id).Info("store: seeded device identity")
	} else if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return s, nil
}

// ImportTicket implements secondary.TitleStore. The ticket is held in
// memory and persisted with the next committed title.
func (s *TitleStore) ImportTicket(ticket, certs []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ticket) < title.TicketSize {
		return fmt.Errorf("ticket: %d bytes, need %d", len(ticket), title.TicketSize)
	}
	if len(certs) == 0 {
		return fmt.Errorf("ticket: missing certificate chain")
	}
	if err := s.checkSignature(ticket); err != nil {
		return fmt.Errorf("ticket: %w", err)
	}

	s.pendingTicket = append([]byte{}, ticket...)
	s.pendingCerts = append([]byte{}, certs...)
	return nil
}

// ImportTitleInit implements secondary.TitleStore.
func (s *TitleStore) ImportTitleInit(tmdBytes, certs []byte) (secondary.ImportContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil {
		return nil, fmt.Errorf("import: another title import is in progress")
	}
	tmd, err := title.ParseTMD(tmdBytes)
	if err != nil {
		return nil, err
	}
	if err := s.checkSignature(tmd.Bytes()); err != nil {
		return nil, fmt.Errorf("tmd: %w", err)
	}

	s.open = &importState{
		tmd:      tmd,
		certs:    append([]byte{}, certs...),
		imported: make(map[uint32][]byte),
	}
	return s.open, nil
}

// ImportContentBegin implements secondary.TitleStore.
func (s *TitleStore) ImportContentBegin(ctx secondary.ImportContext, titleID title.ID, contentID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx)
	if err != nil {
		return err
	}
	if st.tmd.TitleID() != titleID {
		return fmt.Errorf("import: content for %s in an import of %s", titleID.Hex(), st.tmd.TitleID().Hex())
	}
	if st.current != nil {
		return fmt.Errorf("import: content %08x still open", st.current.meta.ID)
	}
	for _, c := range st.tmd.Contents() {
		if c.ID == contentID {
			st.current = &contentBuffer{meta: c}
			return nil
		}
	}
	return fmt.Errorf("import: content %08x not listed in metadata", contentID)
}

// ImportContentData implements secondary.TitleStore.
func (s *TitleStore) ImportContentData(ctx secondary.ImportContext, offset uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx)
	if err != nil {
		return err
	}
	if st.current == nil {
		return fmt.Errorf("import: no content open")
	}
	if int(offset) != len(st.current.data) {
		return fmt.Errorf("import: write at offset %d, have %d bytes", offset, len(st.current.data))
	}
	st.current.data = append(st.current.data, data...)
	return nil
}

// ImportContentEnd implements secondary.TitleStore. The buffered data
// must match the size and hash its metadata entry declares.
func (s *TitleStore) ImportContentEnd(ctx secondary.ImportContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx)
	if err != nil {
		return err
	}
	if st.current == nil {
		return fmt.Errorf("import: no content open")
	}
	cur := st.current
	st.current = nil

	if uint64(len(cur.data)) != cur.meta.Size {
		return fmt.Errorf("content %08x: %d bytes, metadata declares %d", cur.meta.ID, len(cur.data), cur.meta.Size)
	}
	if sum := sha1.Sum(cur.data); !bytes.Equal(sum[:], cur.meta.Hash[:]) {
		return fmt.Errorf("content %08x: hash mismatch", cur.meta.ID)
	}

	st.imported[cur.meta.ID] = cur.data
	return nil
}

// ImportTitleDone implements secondary.TitleStore. The title, its ticket
// and every buffered content are committed in one database transaction;
// contents no longer listed by the new metadata are dropped.
func (s *TitleStore) ImportTitleDone(ctx secondary.ImportContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx)
	if err != nil {
		return err
	}
	defer s.closeState()

	titleID := st.tmd.TitleID().Hex()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin commit: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO titles (title_id, version, tmd) VALUES (?, ?, ?)
		 ON CONFLICT(title_id) DO UPDATE SET version = excluded.version, tmd = excluded.tmd, updated_at = CURRENT_TIMESTAMP`,
		titleID, st.tmd.TitleVersion(), st.tmd.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("failed to commit title: %w", err)
	}

	if s.pendingTicket != nil {
		_, err = tx.Exec(
			`INSERT INTO tickets (title_id, ticket, cert_chain) VALUES (?, ?, ?)
			 ON CONFLICT(title_id) DO UPDATE SET ticket = excluded.ticket, cert_chain = excluded.cert_chain, updated_at = CURRENT_TIMESTAMP`,
			titleID, s.pendingTicket, s.pendingCerts,
		)
		if err != nil {
			return fmt.Errorf("failed to commit ticket: %w", err)
		}
	}

	// Drop rows the new metadata no longer lists.
	listed := make([]any, 0, len(st.tmd.Contents())+1)
	listed = append(listed, titleID)
	placeholders := ""
	for i, c := range st.tmd.Contents() {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		listed = append(listed, c.ID)
	}
	query := "DELETE FROM contents WHERE title_id = ?"
	if placeholders != "" {
		query += " AND content_id NOT IN (" + placeholders + ")"
	}
	if _, err := tx.Exec(query, listed...); err != nil {
		return fmt.Errorf("failed to prune contents: %w", err)
	}

	for _, c := range st.tmd.Contents() {
		data, ok := st.imported[c.ID]
		if !ok {
			continue
		}
		_, err = tx.Exec(
			`INSERT INTO contents (title_id, content_id, content_index, content_type, size, hash, data) VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(title_id, content_id) DO UPDATE SET content_index = excluded.content_index, content_type = excluded.content_type, size = excluded.size, hash = excluded.hash, data = excluded.data`,
			titleID, c.ID, c.Index, c.Type, c.Size, c.Hash[:], data,
		)
		if err != nil {
			return fmt.Errorf("failed to commit content %08x: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.pendingTicket = nil
	s.pendingCerts = nil
	s.listing = nil
	return nil
}

// ImportTitleCancel implements secondary.TitleStore.
func (s *TitleStore) ImportTitleCancel(ctx secondary.ImportContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.state(ctx); err != nil {
		return err
	}
	s.closeState()
	return nil
}

// FindInstalledTMD implements secondary.TitleStore.
func (s *TitleStore) FindInstalledTMD(id title.ID) (*title.TMD, error) {
	var raw []byte
	err := s.db.QueryRow("SELECT tmd FROM titles WHERE title_id = ?", id.Hex()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, secondary.ErrTitleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query title %s: %w", id.Hex(), err)
	}
	return title.ParseTMD(raw)
}

// StoredContents implements secondary.TitleStore: the subset of the
// metadata's contents whose rows exist with matching size and hash.
func (s *TitleStore) StoredContents(tmd *title.TMD) ([]title.Content, error) {
	rows, err := s.db.Query("SELECT content_id, size, hash FROM contents WHERE title_id = ?", tmd.TitleID().Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	type row struct {
		size uint64
		hash []byte
	}
	stored := make(map[uint32]row)
	for rows.Next() {
		var id uint32
		var r row
		if err := rows.Scan(&id, &r.size, &r.hash); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		stored[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	var present []title.Content
	for _, c := range tmd.Contents() {
		r, ok := stored[c.ID]
		if ok && r.size == c.Size && bytes.Equal(r.hash, c.Hash[:]) {
			present = append(present, c)
		}
	}
	return present, nil
}

// DeviceID implements secondary.TitleStore.
func (s *TitleStore) DeviceID() (uint32, error) {
	value, err := s.readSetting(settingDeviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to read device id: %w", err)
	}
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupt device id %q: %w", value, err)
	}
	return uint32(id), nil
}

// SignatureChecksEnabled implements secondary.TitleStore.
func (s *TitleStore) SignatureChecksEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sigChecks
}

// SetSignatureChecksEnabled implements secondary.TitleStore.
func (s *TitleStore) SetSignatureChecksEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigChecks = enabled
	if err := s.writeSetting(settingSignatureChecks, strconv.FormatBool(enabled)); err != nil {
		s.log.WithError(err).Warn("store: could not persist signature-check state")
	}
}

// InvalidateContentListing implements secondary.TitleStore.
func (s *TitleStore) InvalidateContentListing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = nil
}

// InstalledTitles implements secondary.TitleLister. The listing is
// cached until the next invalidation.
func (s *TitleStore) InstalledTitles() ([]secondary.InstalledTitle, error) {
	s.mu.Lock()
	if s.listing != nil {
		cached := s.listing
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	rows, err := s.db.Query("SELECT title_id, version, tmd FROM titles ORDER BY title_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query titles: %w", err)
	}
	defer rows.Close()

	var listing []secondary.InstalledTitle
	for rows.Next() {
		var idHex string
		var version uint16
		var raw []byte
		if err := rows.Scan(&idHex, &version, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan title row: %w", err)
		}
		id, err := title.ParseID(idHex)
		if err != nil {
			return nil, fmt.Errorf("corrupt title id %q: %w", idHex, err)
		}
		tmd, err := title.ParseTMD(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", idHex, err)
		}
		listing = append(listing, secondary.InstalledTitle{
			ID:           id,
			Version:      version,
			ContentCount: tmd.ContentCount(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}

	s.mu.Lock()
	s.listing = listing
	s.mu.Unlock()
	return listing, nil
}

// state resolves and validates an import context handle.
func (s *TitleStore) state(ctx secondary.ImportContext) (*importState, error) {
	st, ok := ctx.(*importState)
	if !ok || st == nil {
		return nil, fmt.Errorf("import: invalid context")
	}
	if s.open != st {
		return nil, fmt.Errorf("import: context already closed")
	}
	return st, nil
}

func (s *TitleStore) closeState() {
	s.open = nil
}

// checkSignature rejects blobs that do not open with a known signature
// type. Skipped entirely while signature checking is disabled.
func (s *TitleStore) checkSignature(blob []byte) error {
	if !s.sigChecks {
		return nil
	}
	if len(blob) < 4 {
		return fmt.Errorf("%w: truncated signature", secondary.ErrCheckValue)
	}
	switch binary.BigEndian.Uint32(blob) {
	case sigTypeRSA4096, sigTypeRSA2048, sigTypeECC:
		return nil
	default:
		return fmt.Errorf("%w: unknown signature type", secondary.ErrCheckValue)
	}
}

func (s *TitleStore) readSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *TitleStore) writeSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}
