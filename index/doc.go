// Package index implements the ordered B-tree structure that backs
// PRIMARY KEY and UNIQUE constraint checks and equality lookups.
package index
