package ps

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

const maxFileLine = 64 * 1024

// TableFile returns the name of the file holding a table.
func TableFile(table string) string {
	return table + "_tbl.txt"
}

type fileLine struct {
	key   string
	value string
}

// FileStore keeps one text file per table, one "key:value" line per row in
// insertion order. Every mutation rewrites the file through a temporary file
// and a rename. Version stamps are tracked in memory only; a row that has not
// been written since the store was opened reports version 0.
type FileStore struct {
	catalog *core.Catalog
	fs      billy.Filesystem
	opts    options
	locks   []sync.Mutex

	vmu      sync.Mutex
	versions []map[string]uint64
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens a store rooted at dir, creating the directory if needed.
func NewFileStore(dir string, catalog *core.Catalog, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return NewFileStoreFS(osfs.New(dir), catalog, opts...), nil
}

// NewFileStoreFS opens a store on an arbitrary billy filesystem.
func NewFileStoreFS(fs billy.Filesystem, catalog *core.Catalog, opts ...Option) *FileStore {
	versions := make([]map[string]uint64, catalog.Len())
	for i := range versions {
		versions[i] = make(map[string]uint64)
	}
	return &FileStore{
		catalog:  catalog,
		fs:       fs,
		opts:     newOptions(opts),
		locks:    make([]sync.Mutex, catalog.Len()),
		versions: versions,
	}
}

func (s *FileStore) check(table int) error {
	if table < 0 || table >= s.catalog.Len() {
		return fmt.Errorf("%w: index %d", core.ErrTableNotFound, table)
	}
	return nil
}

func (s *FileStore) name(table int) string {
	return TableFile(s.catalog.Table(table).Name)
}

// each calls fn for every line of the table file. A missing file is an empty
// table.
func (s *FileStore) each(table int, fn func(n int, line fileLine) bool) error {
	f, err := s.fs.Open(s.name(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	return scanLines(s.name(table), f, fn)
}

// scanLines parses "key:value" lines from r. name labels errors.
func scanLines(name string, r io.Reader, fn func(n int, line fileLine) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxFileLine)
	n := 0
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		key, value, ok := strings.Cut(text, ":")
		if !ok {
			return fmt.Errorf("%s line %d: missing key separator", name, n+1)
		}
		if !fn(n, fileLine{key: key, value: value}) {
			return nil
		}
		n++
	}
	return scanner.Err()
}

func (s *FileStore) readAll(table int) ([]fileLine, error) {
	var lines []fileLine
	err := s.each(table, func(_ int, line fileLine) bool {
		lines = append(lines, line)
		return true
	})
	return lines, err
}

func (s *FileStore) lookup(table int, key string) (int, fileLine, error) {
	slot := -1
	var found fileLine
	err := s.each(table, func(n int, line fileLine) bool {
		if line.key == key {
			slot, found = n, line
			return false
		}
		return true
	})
	return slot, found, err
}

func (s *FileStore) version(table int, key string) uint64 {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	return s.versions[table][key]
}

func (s *FileStore) setVersion(table int, key string, version uint64) {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	if version == 0 {
		delete(s.versions[table], key)
		return
	}
	s.versions[table][key] = version
}

func (s *FileStore) KeyExists(table int, key string) (int, bool) {
	if s.check(table) != nil {
		return -1, false
	}
	slot, _, err := s.lookup(table, key)
	if err != nil || slot < 0 {
		return -1, false
	}
	return slot, true
}

func (s *FileStore) Get(table int, key string) (Record, error) {
	if err := s.check(table); err != nil {
		return Record{}, err
	}
	slot, line, err := s.lookup(table, key)
	if err != nil {
		return Record{}, err
	}
	if slot < 0 {
		return Record{}, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	row, err := codec.Decode(line.value, s.catalog.Table(table))
	if err != nil {
		return Record{}, err
	}
	return Record{Key: key, Value: row, Version: s.version(table, key)}, nil
}

// rewrite replaces the table file with the result of mutate. The caller holds
// the table lock.
func (s *FileStore) rewrite(table int, message string, mutate func([]fileLine) ([]fileLine, error)) error {
	lines, err := s.readAll(table)
	if err != nil {
		return err
	}
	lines, err = mutate(lines)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line.key)
		buf.WriteByte(':')
		buf.WriteString(line.value)
		buf.WriteByte('\n')
	}

	name := s.name(table)
	tmp := name + ".tmp"
	if err := s.writeFile(tmp, buf.Bytes()); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		s.fs.Remove(tmp)
		return err
	}

	if s.opts.history.IsInitialized() {
		if _, err := s.opts.history.Commit(name, buf.Bytes(), s.opts.identity, message); err != nil {
			slog.Warn("failed to record history", "file", name, "error", err)
		}
	}
	return nil
}

func (s *FileStore) writeFile(name string, data []byte) error {
	f, err := s.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) Insert(table int, key string, value codec.Row) error {
	if err := s.check(table); err != nil {
		return err
	}
	s.locks[table].Lock()
	defer s.locks[table].Unlock()

	return s.insertLocked(table, key, value)
}

func (s *FileStore) insertLocked(table int, key string, value codec.Row) error {
	encoded := codec.Encode(value, s.catalog.Table(table))
	err := s.rewrite(table, s.message("SET", table, key), func(lines []fileLine) ([]fileLine, error) {
		if len(lines) >= s.opts.capacity {
			return nil, fmt.Errorf("%w: %d rows", core.ErrCapacityExceeded, len(lines))
		}
		for _, line := range lines {
			if line.key == key {
				return nil, fmt.Errorf("%w: key %s already exists", core.ErrInvalidParam, key)
			}
		}
		return append(lines, fileLine{key: key, value: encoded}), nil
	})
	if err != nil {
		return err
	}
	s.setVersion(table, key, nextVersion(0, s.opts.clock()))
	return nil
}

// Update rewrites the line for key. slot is ignored; the file is always
// searched.
func (s *FileStore) Update(table int, key string, value codec.Row, expected uint64, slot int) error {
	if err := s.check(table); err != nil {
		return err
	}
	s.locks[table].Lock()
	defer s.locks[table].Unlock()

	return s.updateLocked(table, key, value, expected)
}

func (s *FileStore) updateLocked(table int, key string, value codec.Row, expected uint64) error {
	current := s.version(table, key)
	encoded := codec.Encode(value, s.catalog.Table(table))
	err := s.rewrite(table, s.message("SET", table, key), func(lines []fileLine) ([]fileLine, error) {
		for i := range lines {
			if lines[i].key == key {
				if expected != 0 && expected != current {
					return nil, fmt.Errorf("%w: %s is at version %d, not %d", core.ErrTransactionAbort, key, current, expected)
				}
				lines[i].value = encoded
				return lines, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	})
	if err != nil {
		return err
	}
	s.setVersion(table, key, nextVersion(current, s.opts.clock()))
	return nil
}

func (s *FileStore) Set(table int, key string, value codec.Row, expected uint64) error {
	if err := s.check(table); err != nil {
		return err
	}
	s.locks[table].Lock()
	defer s.locks[table].Unlock()

	slot, _, err := s.lookup(table, key)
	if err != nil {
		return err
	}
	if slot >= 0 {
		return s.updateLocked(table, key, value, expected)
	}
	return s.insertLocked(table, key, value)
}

func (s *FileStore) Delete(table int, key string) error {
	if err := s.check(table); err != nil {
		return err
	}
	s.locks[table].Lock()
	defer s.locks[table].Unlock()

	err := s.rewrite(table, s.message("DELETE", table, key), func(lines []fileLine) ([]fileLine, error) {
		for i := range lines {
			if lines[i].key == key {
				return append(lines[:i], lines[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	})
	if err != nil {
		return err
	}
	s.setVersion(table, key, 0)
	return nil
}

func (s *FileStore) Scan(table int, fn func(Record) bool) error {
	if err := s.check(table); err != nil {
		return err
	}
	schema := s.catalog.Table(table)

	var decodeErr error
	err := s.each(table, func(_ int, line fileLine) bool {
		row, err := codec.Decode(line.value, schema)
		if err != nil {
			decodeErr = fmt.Errorf("%s: key %s: %w", s.name(table), line.key, err)
			return false
		}
		return fn(Record{Key: line.key, Value: row, Version: s.version(table, line.key)})
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (s *FileStore) Len(table int) int {
	if s.check(table) != nil {
		return 0
	}
	n := 0
	_ = s.each(table, func(int, fileLine) bool {
		n++
		return true
	})
	return n
}

func (s *FileStore) message(op string, table int, key string) string {
	return fmt.Sprintf("%s %s/%s", op, s.catalog.Table(table).Name, key)
}

func (s *FileStore) Close() error {
	return nil
}
