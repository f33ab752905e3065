package communication

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal appends one line per finalized dream block to a log file. The
// file is the feed for WatchJournal, which streams records to websocket
// clients and dashboards.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal creates the journal file for chainID under dir.
func NewJournal(dir, chainID string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("dreams_%s.log", chainID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	f.Close()

	return &Journal{path: path}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append records one finalized block.
func (j *Journal) Append(height uint64, hash string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := fmt.Sprintf("[%s] #%d %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		height,
		hash)

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}
