package ps

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/storage"
)

var ErrNotInitialized = errors.New("persistence layer not initialized")

const tableFileSuffix = ".table.json"

// Persistence stores catalog snapshots in a git repository: one
// <table>.table.json file per table in the worktree, one commit per
// save. The commit log is the snapshot history.
type Persistence struct {
	repo *git.Repository
	fs   billy.Filesystem
}

// Commit describes one saved snapshot.
type Commit struct {
	ID      string
	Author  string
	Message string
	When    time.Time
}

func (c Commit) String() string {
	return fmt.Sprintf("%s %s %q", c.ID[:8], c.When.Format(time.RFC3339), c.Message)
}

func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

// NewMemoryPersistence keeps the repository entirely in memory.
func NewMemoryPersistence() (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}
	return &Persistence{repo: repo, fs: wt}, nil
}

// NewFilePersistence opens or initializes a repository under baseDir.
func NewFilePersistence(baseDir string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}
	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}
	return &Persistence{repo: repo, fs: wt}, nil
}

func tableFileName(table string) string {
	return strings.ToLower(table) + tableFileSuffix
}

// Save writes the snapshot into the worktree and commits it. Tables
// dropped since the previous save have their files removed.
func (p *Persistence) Save(snap *storage.Snapshot, identity core.Identity, message string) (Commit, error) {
	if !p.IsInitialized() {
		return Commit{}, ErrNotInitialized
	}

	keep := make(map[string]bool, len(snap.Tables))
	for _, table := range snap.Tables {
		name := tableFileName(table.Name)
		keep[name] = true
		data, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return Commit{}, fmt.Errorf("failed to marshal table %s: %w", table.Name, err)
		}
		if err := util.WriteFile(p.fs, name, data, 0644); err != nil {
			return Commit{}, fmt.Errorf("failed to write table file: %w", err)
		}
	}

	entries, err := p.fs.ReadDir(".")
	if err != nil {
		return Commit{}, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tableFileSuffix) && !keep[name] {
			if err := p.fs.Remove(name); err != nil {
				return Commit{}, fmt.Errorf("failed to remove stale table file: %w", err)
			}
		}
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return Commit{}, err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return Commit{}, fmt.Errorf("failed to stage snapshot: %w", err)
	}

	if message == "" {
		message = "Save snapshot"
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return Commit{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return Commit{
		ID:      hash.String(),
		Author:  fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
		Message: message,
		When:    time.Now(),
	}, nil
}

// Load reads the current worktree back into a snapshot.
func (p *Persistence) Load() (*storage.Snapshot, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	entries, err := p.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	snap := &storage.Snapshot{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, tableFileSuffix) {
			continue
		}
		data, err := util.ReadFile(p.fs, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read table file %s: %w", name, err)
		}
		var table storage.TableSnapshot
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to unmarshal table file %s: %w", name, err)
		}
		snap.Tables = append(snap.Tables, table)
	}
	sort.Slice(snap.Tables, func(i, j int) bool {
		return snap.Tables[i].Name < snap.Tables[j].Name
	})
	return snap, nil
}

// LoadAt materializes the snapshot as of an older commit without
// moving HEAD.
func (p *Persistence) LoadAt(commitID string) (*storage.Snapshot, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	commit, err := p.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("commit %s not found: %w", commitID, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	snap := &storage.Snapshot{}
	err = tree.Files().ForEach(func(f *object.File) error {
		if !strings.HasSuffix(f.Name, tableFileSuffix) {
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return err
		}
		var table storage.TableSnapshot
		if err := json.Unmarshal([]byte(contents), &table); err != nil {
			return fmt.Errorf("failed to unmarshal table file %s: %w", f.Name, err)
		}
		snap.Tables = append(snap.Tables, table)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(snap.Tables, func(i, j int) bool {
		return snap.Tables[i].Name < snap.Tables[j].Name
	})
	return snap, nil
}

// History lists saved snapshots, newest first.
func (p *Persistence) History() ([]Commit, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	iter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		author := ""
		if c.Author.Name != "" || c.Author.Email != "" {
			author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
		}
		commits = append(commits, Commit{
			ID:      c.Hash.String(),
			Author:  author,
			Message: strings.TrimSpace(c.Message),
			When:    c.Committer.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// EncodeSnapshot renders a snapshot as a single JSON document, the
// form used for remote export.
func EncodeSnapshot(snap *storage.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeSnapshot reads a snapshot back from its exported form.
func DecodeSnapshot(r io.Reader) (*storage.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
