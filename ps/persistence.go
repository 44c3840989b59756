package ps

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

var ErrNotInitialized = errors.New("history not initialized")

// Record is one stored row.
type Record struct {
	Key     string
	Value   codec.Row
	Version uint64
}

// Store is the operation contract shared by the memory and file backends.
// Table arguments are catalog indexes that the caller has already resolved.
type Store interface {
	// KeyExists returns the slot of key within the table.
	KeyExists(table int, key string) (int, bool)
	Get(table int, key string) (Record, error)
	// Insert appends a new row. It fails with core.ErrCapacityExceeded when
	// the table is full.
	Insert(table int, key string, value codec.Row) error
	// Update overwrites an existing row. A non-zero expected version that
	// differs from the stored one aborts with core.ErrTransactionAbort and
	// leaves the row untouched. slot is a hint from KeyExists.
	Update(table int, key string, value codec.Row, expected uint64, slot int) error
	// Set updates key if it exists and inserts it otherwise, as one step
	// with respect to other writers of the table.
	Set(table int, key string, value codec.Row, expected uint64) error
	Delete(table int, key string) error
	// Scan calls fn for every row until fn returns false.
	Scan(table int, fn func(Record) bool) error
	Len(table int) int
	Close() error
}

type options struct {
	capacity int
	clock    func() time.Time
	history  *History
	identity core.Identity
}

type Option func(*options)

// WithCapacity overrides the maximum number of rows per table.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithClock replaces the wall clock used for version stamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithHistory commits every rewritten table file to h. Only the file backend
// produces history.
func WithHistory(h *History, identity core.Identity) Option {
	return func(o *options) {
		o.history = h
		o.identity = identity
	}
}

func newOptions(opts []Option) options {
	o := options{
		capacity: core.MaxRecordsPerTable,
		clock:    time.Now,
		identity: core.Identity{Name: "tablekv", Email: "server@tablekv.local"},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// nextVersion returns the stamp for a row currently at version current. The
// stamp follows the clock but never goes backwards.
func nextVersion(current uint64, now time.Time) uint64 {
	stamp := uint64(now.Unix())
	if stamp <= current {
		return current + 1
	}
	return stamp
}

// History records every table file rewrite as a git commit.
type History struct {
	repo *git.Repository
	mu   sync.Mutex
}

// IsInitialized returns true if the history has a valid repository
func (h *History) IsInitialized() bool {
	return h != nil && h.repo != nil
}

func (h *History) ensureInitialized() error {
	if !h.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

func NewMemoryHistory() (*History, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &History{repo: repo}, nil
}

// NewFileHistory opens the history repository in baseDir, creating it if
// needed.
func NewFileHistory(baseDir string) (*History, error) {
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

	return &History{repo: repo}, nil
}
