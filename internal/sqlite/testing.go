package sqlite

import (
	"database/sql"
	"testing"
)

// NewTestDB creates an in-memory SQLite database with the schema applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewTestStore creates a Store over a fresh in-memory database.
func NewTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db := NewTestDB(t)
	return NewStore(db), db
}

// SeedUser inserts a directory user row for tests.
func SeedUser(t *testing.T, db *sql.DB, companyID, userID, role string, active bool) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO users (id, company_id, name, role, active) VALUES (?, ?, ?, ?, ?)`,
		userID, companyID, userID, role, active)
	if err != nil {
		t.Fatalf("seeding user %s: %v", userID, err)
	}
}

// SeedProject inserts a directory project row for tests.
func SeedProject(t *testing.T, db *sql.DB, companyID, projectID string, archived bool) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO projects (id, company_id, name, archived) VALUES (?, ?, ?, ?)`,
		projectID, companyID, projectID, archived)
	if err != nil {
		t.Fatalf("seeding project %s: %v", projectID, err)
	}
}
