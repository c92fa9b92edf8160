// Package services implements the driving ports: search, indexing,
// containers, annotations and workspace reads. Services hold the
// business rules and reach infrastructure only through the driven
// port interfaces, so they run unchanged against SQLite or the
// in-memory test store.
package services
