package registry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"uncomtrade/internal/model"
)

// Entry is one row of a role's country table.
type Entry struct {
	Code int
	Name string
}

// Store holds the cached country tables, one per role. Load reports
// ok=false when no table has been saved for the role yet.
type Store interface {
	Load(role model.Role) ([]Entry, bool, error)
	Save(role model.Role, entries []Entry) error
}

// FileStore keeps each table as {role}Areas.csv under Dir, encoded as
// latin-1 to match the upstream cache files' display names.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(role model.Role) string {
	return filepath.Join(s.Dir, string(role)+"Areas.csv")
}

func (s *FileStore) Load(role model.Role) ([]Entry, bool, error) {
	file, err := os.Open(s.path(role))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(transform.NewReader(file, charmap.ISO8859_1.NewDecoder()))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("registry: read %s: %w", s.path(role), err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		code, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Code: code, Name: row[1]})
	}
	return entries, true, nil
}

func (s *FileStore) Save(role model.Role, entries []Entry) error {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(s.path(role))
	if err != nil {
		return err
	}
	defer file.Close()

	encoded := transform.NewWriter(file, charmap.ISO8859_1.NewEncoder())
	writer := csv.NewWriter(encoded)
	if err := writer.Write([]string{"id", "text"}); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writer.Write([]string{strconv.Itoa(entry.Code), entry.Name}); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return encoded.Close()
}

// MemStore is an in-memory Store for tests and non-persistent use.
type MemStore struct {
	mu     sync.Mutex
	tables map[model.Role][]Entry
}

func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[model.Role][]Entry)}
}

func (s *MemStore) Load(role model.Role) ([]Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.tables[role]
	if !ok {
		return nil, false, nil
	}
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return copied, true, nil
}

func (s *MemStore) Save(role model.Role, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	s.tables[role] = copied
	return nil
}
