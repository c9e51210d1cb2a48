// Package storage holds the in-memory row store: tables, the catalog,
// constraint enforcement, index maintenance, and the serializable
// snapshot form consumed by the persistence layer.
package storage
