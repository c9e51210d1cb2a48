// Package db is the query executor: it parses statement text, runs it
// against a storage.Database, and returns structured results.
package db
