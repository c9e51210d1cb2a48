package core

// Identity names the author recorded on saved snapshots.
type Identity struct {
	Name  string
	Email string
}
