package flywheel

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/snow-ghost/strategist/core"
)

// timestampLayout names one run's log file down to the second.
const timestampLayout = "20060102T150405"

// Store is the append-only flywheel log: one JSON line per winning path,
// one file per run, all under a single directory. It implements
// core.TraceLog.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// the first append.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Append marshals the record as a single JSON line and appends it to the
// run's log file, creating the directory and file as needed.
func (s *Store) Append(_ context.Context, record core.WinningPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create flywheel directory: %w", err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal winning path: %w", err)
	}

	path := filepath.Join(s.dir, s.filename(record))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open flywheel log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append winning path: %w", err)
	}
	return nil
}

// filename is {timestamp}_{fnv1a(problem) mod 10000}.jsonl so runs sort by
// time and same-problem runs cluster on the hash suffix.
func (s *Store) filename(record core.WinningPath) string {
	h := fnv.New32a()
	h.Write([]byte(record.ProblemDescription))
	return fmt.Sprintf("%s_%04d.jsonl", s.now().UTC().Format(timestampLayout), h.Sum32()%10000)
}
