package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database with the
// cursorDiskKV schema for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cursorDiskKV (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create cursorDiskKV table: %v", err)
	}

	return db
}

// InsertKV inserts a key/value pair into the cursorDiskKV table
func InsertKV(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}

// CreateTestDB creates a test database with a two-message conversation
// plus a second conversation carrying a tool call
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	InsertKV(t, db, "composerData:composer1",
		`{"composerId":"composer1","name":"Test Conversation","createdAt":1000,"lastUpdatedAt":2000,`+
			`"fullConversationHeadersOnly":[{"bubbleId":"bubble1","type":1},{"bubbleId":"bubble2","type":2}]}`)
	InsertKV(t, db, "bubbleId:composer1:bubble1",
		`{"text":"Hello","timestamp":1000,"type":1}`)
	InsertKV(t, db, "bubbleId:composer1:bubble2",
		`{"text":"Hi there","timestamp":2000,"type":2}`)

	InsertKV(t, db, "composerData:composer2",
		`{"composerId":"composer2","name":"Tooling","createdAt":3000,"lastUpdatedAt":4000,`+
			`"fullConversationHeadersOnly":[{"bubbleId":"bubble3","type":1},{"bubbleId":"bubble4","type":2}]}`)
	InsertKV(t, db, "bubbleId:composer2:bubble3",
		`{"text":"Run the tests","timestamp":3000,"type":1}`)
	InsertKV(t, db, "bubbleId:composer2:bubble4",
		`{"text":"Running now","timestamp":4000,"type":2,`+
			`"toolFormerData":[{"name":"run_terminal","params":{"cmd":"make test"},"result":{"exit":0},"status":"completed"}]}`)

	return db
}
