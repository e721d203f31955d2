package logbook

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names the operation an entry records.
type Kind string

const (
	KindValidate Kind = "validate"
	KindPreview  Kind = "preview"
	KindMerge    Kind = "merge"
	KindCheck    Kind = "check"
)

// Entry is one line of the run history.
type Entry struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Kind        Kind      `json:"kind"`
	Project     string    `json:"project,omitempty"`
	Base        string    `json:"base"`
	Modules     []string  `json:"modules,omitempty"`
	Valid       bool      `json:"valid"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Output      string    `json:"output,omitempty"`
	Note        string    `json:"note,omitempty"`
}

// Logbook persists run history as JSON lines.
type Logbook struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends an entry, stamping an ID and the time when unset.
func (l *Logbook) Record(entry Entry) error {
	if l == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = l.now().UTC()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("logbook: encode entry: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("logbook: write %s: %w", l.path, err)
	}
	return nil
}

// Tail returns up to maxEntries of the most recent entries plus the total
// number of entries recorded. Lines that fail to decode are skipped.
func (l *Logbook) Tail(maxEntries int) ([]Entry, int) {
	if l == nil || maxEntries <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	total := len(entries)
	if total > maxEntries {
		entries = entries[total-maxEntries:]
	}
	return entries, total
}
