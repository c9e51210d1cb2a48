package tessera

import (
	"fmt"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/db"
	"github.com/tesseradb/tessera/ps"
	"github.com/tesseradb/tessera/storage"
)

// Instance ties one catalog to an optional snapshot store.
type Instance struct {
	DB          *storage.Database
	Persistence *ps.Persistence
}

// Open wires a fresh catalog to the given snapshot store. If the store
// already holds a snapshot, it is restored.
func Open(persistence *ps.Persistence) (*Instance, error) {
	instance := &Instance{
		DB:          storage.NewDatabase(),
		Persistence: persistence,
	}
	if persistence.IsInitialized() {
		snap, err := persistence.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if len(snap.Tables) > 0 {
			if err := storage.RestoreSnapshot(instance.DB, snap); err != nil {
				return nil, fmt.Errorf("failed to restore snapshot: %w", err)
			}
		}
	}
	return instance, nil
}

// OpenMemory creates an instance backed by an in-memory repository.
func OpenMemory() (*Instance, error) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		return nil, err
	}
	return Open(persistence)
}

// OpenFile creates or reopens an instance persisted under baseDir.
func OpenFile(baseDir string) (*Instance, error) {
	persistence, err := ps.NewFilePersistence(baseDir)
	if err != nil {
		return nil, err
	}
	return Open(persistence)
}

// Engine returns an executor over this instance's catalog.
func (instance *Instance) Engine() *db.Engine {
	return db.NewEngine(instance.DB)
}

// Snapshot captures the current catalog contents.
func (instance *Instance) Snapshot() *storage.Snapshot {
	return storage.BuildSnapshot(instance.DB)
}

// Restore replaces the catalog with the given snapshot.
func (instance *Instance) Restore(snap *storage.Snapshot) error {
	return storage.RestoreSnapshot(instance.DB, snap)
}

// History lists the saved snapshots, newest first.
func (instance *Instance) History() ([]ps.Commit, error) {
	return instance.Persistence.History()
}

// Save commits the current catalog as a snapshot.
func (instance *Instance) Save(identity core.Identity, message string) (ps.Commit, error) {
	return instance.Persistence.Save(storage.BuildSnapshot(instance.DB), identity, message)
}

// Load replaces the catalog with the latest saved snapshot.
func (instance *Instance) Load() error {
	snap, err := instance.Persistence.Load()
	if err != nil {
		return err
	}
	return storage.RestoreSnapshot(instance.DB, snap)
}

// LoadAt replaces the catalog with the snapshot saved at commitID.
func (instance *Instance) LoadAt(commitID string) error {
	snap, err := instance.Persistence.LoadAt(commitID)
	if err != nil {
		return err
	}
	return storage.RestoreSnapshot(instance.DB, snap)
}
