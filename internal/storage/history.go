package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/repokit/pkg/models"
)

// HistoryManager is the append-only per-task ledger. Entries live as one
// file per epoch second under <task dir>/history; the filename is the sort
// and identity key.
type HistoryManager interface {
	// Append writes one entry keyed by the current epoch second. A
	// same-second collision drops the entry silently rather than
	// overwriting an existing one (append-only contract).
	Append(id, author, message string) error

	// ReadAll returns all entries sorted by timestamp.
	ReadAll(id string) ([]models.HistoryEntry, error)
}

type fileHistoryManager struct {
	store PlanStore
	now   func() int64
}

// NewHistoryManager creates a HistoryManager that resolves task directories
// through the given store.
func NewHistoryManager(store PlanStore) HistoryManager {
	return &fileHistoryManager{
		store: store,
		now:   func() int64 { return time.Now().Unix() },
	}
}

func (m *fileHistoryManager) historyDir(id string) string {
	return filepath.Join(m.store.TaskDir(id), "history")
}

func (m *fileHistoryManager) Append(id, author, message string) error {
	dir := m.historyDir(id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating history dir for %s: %w", id, err)
	}
	ts := m.now()
	path := filepath.Join(dir, fmt.Sprintf("%d.md", ts))

	var b strings.Builder
	fmt.Fprintf(&b, "time: %d\n", ts)
	if author != "" {
		fmt.Fprintf(&b, "author: %s\n", author)
	}
	b.WriteString("---\n")
	b.WriteString(message)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// Same-second collision: the existing entry wins.
			return nil
		}
		return fmt.Errorf("creating history entry for %s: %w", id, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing history entry for %s: %w", id, err)
	}
	return nil
}

func (m *fileHistoryManager) ReadAll(id string) ([]models.HistoryEntry, error) {
	dir := m.historyDir(id)
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history dir for %s: %w", id, err)
	}

	var entries []models.HistoryEntry
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			continue // skip unreadable entries
		}
		entries = append(entries, parseHistoryEntry(string(data)))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })
	return entries, nil
}

// parseHistoryEntry decodes the "time:/author:/---/body" format. Malformed
// headers degrade to an entry with the raw content as the message.
func parseHistoryEntry(raw string) models.HistoryEntry {
	var e models.HistoryEntry
	header, body, found := strings.Cut(raw, "---\n")
	if !found {
		e.Message = raw
		return e
	}
	for _, line := range strings.Split(header, "\n") {
		if v, ok := strings.CutPrefix(line, "time: "); ok {
			e.Time, _ = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
		if v, ok := strings.CutPrefix(line, "author: "); ok {
			e.Author = strings.TrimSpace(v)
		}
	}
	e.Message = body
	return e
}
