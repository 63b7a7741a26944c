// Package testing contains fixtures shared by package tests: an in-memory SQLite
// database shaped like the Oracle views the exporter reads, and a configuration builder.
package testing

const (
	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600

	// testInterval is the collection interval used by built configurations.
	testInterval = "50ms"

	// testQueryTimeout bounds fixture queries.
	testQueryTimeout = "2s"
)
