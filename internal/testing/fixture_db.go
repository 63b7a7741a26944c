package testing

import (
	"database/sql"
	"testing"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/oraexporter/internal/source"
)

// Queries reads the fixture schema the way source.OracleQueries reads Oracle.
var Queries = source.Queries{
	ActiveSessions: `SELECT COUNT(*) FROM sessions WHERE status = 'ACTIVE' AND type = 'USER'`,
	PhysicalReads:  `SELECT value FROM sysstat WHERE name = 'physical reads'`,
	ExecuteCount:   `SELECT value FROM sysstat WHERE name = 'execute count'`,
	TablespaceUsage: `SELECT d.tablespace_name, ROUND((d.bytes - COALESCE(f.bytes, 0)) * 100.0 / d.bytes, 2)
  FROM (SELECT tablespace_name, SUM(bytes) AS bytes FROM data_files GROUP BY tablespace_name) d
  LEFT JOIN (SELECT tablespace_name, SUM(bytes) AS bytes FROM free_space GROUP BY tablespace_name) f
    ON d.tablespace_name = f.tablespace_name`,
}

const schema = `
CREATE TABLE sessions (status TEXT, type TEXT);
CREATE TABLE sysstat (name TEXT, value INTEGER);
CREATE TABLE data_files (tablespace_name TEXT, bytes INTEGER);
CREATE TABLE free_space (tablespace_name TEXT, bytes INTEGER);
INSERT INTO sysstat VALUES ('physical reads', 123456), ('execute count', 987654);
INSERT INTO data_files VALUES ('SYSTEM', 600), ('SYSTEM', 400), ('USERS', 1000);
INSERT INTO free_space VALUES ('SYSTEM', 100), ('SYSTEM', 75), ('USERS', 599);
`

// FixtureDB is an in-memory database whose contents tests can change between cycles.
// With the seeded rows SYSTEM is 82.5% used and USERS 40.1%.
type FixtureDB struct {
	*sql.DB
	t *testing.T
}

// OpenFixture creates a seeded fixture with activeSessions active user sessions.
func OpenFixture(t *testing.T, activeSessions int) *FixtureDB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	f := &FixtureDB{DB: db, t: t}
	f.exec(schema)
	f.SetActiveSessions(activeSessions)
	return f
}

// SetActiveSessions replaces the session table with n active user sessions and one
// background session.
func (f *FixtureDB) SetActiveSessions(n int) {
	f.t.Helper()
	f.exec(`DELETE FROM sessions`)
	f.exec(`INSERT INTO sessions VALUES ('ACTIVE', 'BACKGROUND')`)
	for range n {
		f.exec(`INSERT INTO sessions VALUES ('ACTIVE', 'USER')`)
	}
}

// DropTablespace removes a tablespace from both dictionary tables.
func (f *FixtureDB) DropTablespace(name string) {
	f.t.Helper()
	f.exec(`DELETE FROM data_files WHERE tablespace_name = ?`, name)
	f.exec(`DELETE FROM free_space WHERE tablespace_name = ?`, name)
}

// BreakTablespaces makes the tablespace query fail.
func (f *FixtureDB) BreakTablespaces() {
	f.t.Helper()
	f.exec(`DROP TABLE free_space`)
}

// Catalog returns the built-in metric definitions bound to the fixture.
func (f *FixtureDB) Catalog(opts ...source.Option) []source.Definition {
	return source.Catalog(f.DB, Queries, opts...)
}

func (f *FixtureDB) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec: %v", err)
	}
}
