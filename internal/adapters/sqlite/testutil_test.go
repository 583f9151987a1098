// Package sqlite_test contains integration tests for the SQLite
// adapters.
//
// The schema is loaded in exactly one place: setupTestDB uses
// db.GetSchemaSQL() so tests always run against the authoritative
// schema. Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"io"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/adapters/sqlite"
	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestStore(t *testing.T) *sqlite.TitleStore {
	t.Helper()
	store, err := sqlite.NewTitleStore(setupTestDB(t), testLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// signedTestTMD builds metadata that passes the store's structural
// signature check, with content sizes and hashes matching contentData.
// Content ids are taken in ascending order.
func signedTestTMD(t *testing.T, id title.ID, version uint16, contentData map[uint32][]byte) []byte {
	t.Helper()
	ids := make([]uint32, 0, len(contentData))
	for cid := range contentData {
		ids = append(ids, cid)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	contents := make([]title.Content, len(ids))
	for i, cid := range ids {
		contents[i] = title.Content{
			ID:    cid,
			Index: uint16(i),
			Type:  1,
			Size:  uint64(len(contentData[cid])),
			Hash:  sha1.Sum(contentData[cid]),
		}
	}
	raw := title.EncodeTMD(title.TMDParams{
		TitleID: id,
		Version: version,
		Region:  title.RegionEurope,
	}, contents)
	binary.BigEndian.PutUint32(raw, 0x00010001)
	return raw
}

// signedTestTicket builds a ticket that passes the structural signature
// check.
func signedTestTicket() []byte {
	ticket := make([]byte, title.TicketSize)
	binary.BigEndian.PutUint32(ticket, 0x00010001)
	return ticket
}

// importTitle drives a full successful import through the store.
func importTitle(t *testing.T, store *sqlite.TitleStore, raw []byte, contentData map[uint32][]byte) {
	t.Helper()
	tmd, err := title.ParseTMD(raw)
	if err != nil {
		t.Fatalf("failed to parse metadata: %v", err)
	}
	if err := store.ImportTicket(signedTestTicket(), []byte{0xCE}); err != nil {
		t.Fatalf("ImportTicket: %v", err)
	}
	ictx, err := store.ImportTitleInit(raw, []byte{0xCE})
	if err != nil {
		t.Fatalf("ImportTitleInit: %v", err)
	}
	for _, c := range tmd.Contents() {
		if err := store.ImportContentBegin(ictx, tmd.TitleID(), c.ID); err != nil {
			t.Fatalf("ImportContentBegin %08x: %v", c.ID, err)
		}
		if err := store.ImportContentData(ictx, 0, contentData[c.ID]); err != nil {
			t.Fatalf("ImportContentData %08x: %v", c.ID, err)
		}
		if err := store.ImportContentEnd(ictx); err != nil {
			t.Fatalf("ImportContentEnd %08x: %v", c.ID, err)
		}
	}
	if err := store.ImportTitleDone(ictx); err != nil {
		t.Fatalf("ImportTitleDone: %v", err)
	}
}
