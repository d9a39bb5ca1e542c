package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Quote is a saved message attributed to its author.
type Quote struct {
	// ID is the source message ID, used to reject duplicates.
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Store persists quotes per author.
type Store interface {
	// List returns the quotes of a user, empty when none.
	List(ctx context.Context, userID string) ([]Quote, error)

	// Append saves q for userID. It reports false without error when a quote
	// with the same ID already exists for that user.
	Append(ctx context.Context, userID string, q Quote) (bool, error)

	// Users returns the IDs of every user with at least one quote.
	Users(ctx context.Context) ([]string, error)
}

// JSONFileStore keeps every quote in a single JSON document of the form
// {"<userID>": [{"id": "...", "text": "..."}]}. A missing file is an empty
// store.
type JSONFileStore struct {
	path string

	mu     sync.Mutex
	quotes map[string][]Quote
}

// OpenJSONFile loads the store at path.
func OpenJSONFile(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{path: path, quotes: make(map[string][]Quote)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quotes: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.quotes); err != nil {
		return nil, fmt.Errorf("decode quotes %s: %w", path, err)
	}
	return s, nil
}

// List implements Store.
func (s *JSONFileStore) List(_ context.Context, userID string) ([]Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.quotes[userID]), nil
}

// Append implements Store. The file is rewritten through a temporary file and
// a rename; a failed write leaves memory and disk unchanged.
func (s *JSONFileStore) Append(_ context.Context, userID string, q Quote) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.quotes[userID]
	if slices.ContainsFunc(existing, func(e Quote) bool { return e.ID == q.ID }) {
		return false, nil
	}

	s.quotes[userID] = append(slices.Clone(existing), q)
	if err := s.flush(); err != nil {
		if existing == nil {
			delete(s.quotes, userID)
		} else {
			s.quotes[userID] = existing
		}
		return false, err
	}
	return true, nil
}

// Users implements Store.
func (s *JSONFileStore) Users(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.quotes))
	for id, quotes := range s.quotes {
		if len(quotes) > 0 {
			users = append(users, id)
		}
	}
	slices.Sort(users)
	return users, nil
}

func (s *JSONFileStore) flush() error {
	data, err := json.Marshal(s.quotes)
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create quotes directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".quotes-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write quotes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close quotes: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace quotes: %w", err)
	}
	return nil
}

var _ Store = (*JSONFileStore)(nil)
