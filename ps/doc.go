// Package ps persists catalog snapshots in a git repository, one
// commit per save, and moves snapshot files to and from remote
// locations (local paths, HTTP, S3).
package ps
