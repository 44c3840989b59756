package ps

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Tag names asof, or the latest commit when asof is nil.
func (h *History) Tag(name string, asof *Transaction) error {
	if err := h.ensureInitialized(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := h.repo.Head()
		if err != nil {
			return fmt.Errorf("no commits yet: %w", err)
		}
		hash = headRef.Hash()
	}

	_, err := h.repo.CreateTag(name, hash, nil)
	return err
}

// Resolve finds the commit named by rev, which is a tag or a commit id.
func (h *History) Resolve(rev string) (Transaction, error) {
	if err := h.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hash, err := h.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return Transaction{}, fmt.Errorf("resolve %q: %w", rev, err)
	}
	commit, err := h.repo.CommitObject(*hash)
	if err != nil {
		return Transaction{}, fmt.Errorf("resolve %q: %w", rev, err)
	}
	return toTransaction(commit), nil
}

// ReadFileAt returns the content of name as of asof. A file that did not
// exist yet reads as empty.
func (h *History) ReadFileAt(name string, asof Transaction) ([]byte, error) {
	if err := h.ensureInitialized(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	commit, err := h.repo.CommitObject(plumbing.NewHash(asof.Id))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// Restore rewrites every table to its content as of asof. The commit that was
// current before the restore is tagged "pre-restore-<unix time>" so the
// restore can itself be undone. Every restored row reports version 0 until
// it is written again.
func (s *FileStore) Restore(asof Transaction) error {
	h := s.opts.history
	if !h.IsInitialized() {
		return ErrNotInitialized
	}

	if latest := h.Latest(); latest.Id != "" {
		tag := "pre-restore-" + strconv.FormatInt(s.opts.clock().Unix(), 10)
		if err := h.Tag(tag, &latest); err != nil {
			slog.Warn("failed to tag history before restore", "tag", tag, "error", err)
		}
	}

	for table := 0; table < s.catalog.Len(); table++ {
		if err := s.restoreTable(table, asof); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) restoreTable(table int, asof Transaction) error {
	name := s.name(table)
	data, err := s.opts.history.ReadFileAt(name, asof)
	if err != nil {
		return err
	}

	var lines []fileLine
	err = scanLines(name, bytes.NewReader(data), func(_ int, line fileLine) bool {
		lines = append(lines, line)
		return true
	})
	if err != nil {
		return err
	}

	s.locks[table].Lock()
	defer s.locks[table].Unlock()

	message := fmt.Sprintf("RESTORE %s to %s", s.catalog.Table(table).Name, shortId(asof.Id))
	err = s.rewrite(table, message, func([]fileLine) ([]fileLine, error) {
		return lines, nil
	})
	if err != nil {
		return err
	}

	s.vmu.Lock()
	s.versions[table] = make(map[string]uint64)
	s.vmu.Unlock()

	slog.Info("restored table", "table", s.catalog.Table(table).Name, "rows", len(lines), "asof", asof.When.Format(time.RFC3339))
	return nil
}

func shortId(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
