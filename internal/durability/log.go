// Package durability implements the write-ahead transaction log (C5) and
// the full-state snapshot store (C6) spec.md §4.5 describes.
package durability

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gridhouse/internal/logger"
)

// LogEntry is one committed write transaction: the wall-clock instant it
// was recorded, the revision it advanced the dataset into, and the
// original command words (the verbatim bulk array, not a re-rendered
// message, so non-canonical but valid client framings round-trip).
type LogEntry struct {
	At       time.Time `msgpack:"at"`
	Revision uint64    `msgpack:"revision"`
	Command  []string  `msgpack:"command"`
}

// Log is the single append-only transaction log file. Entries are
// encoded with msgpack, base64-wrapped into an alphabet free of \r\n, and
// written one per line. The log is opened with append-create semantics;
// Append flushes each entry to the operating system but does not fsync.
// Sync is available for an explicit fsync; nothing in the server calls it.
type Log struct {
	mu        sync.Mutex
	path      string
	f         *os.File
	w         *bufio.Writer
	replaying bool
}

// Open opens (creating if necessary) the log file at path for appending.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("durability: open log: %w", err)
	}
	return &Log{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// SetReplaying silences (true) or unlatches (false) the append path. The
// state context calls this around startup replay so that re-dispatching
// logged commands doesn't write them right back (no write-amplification).
func (l *Log) SetReplaying(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replaying = v
}

// Append writes one entry. It is a no-op while replaying. Append must be
// called, and must complete, before the State Context releases its
// exclusive lock for the transaction that produced revision — that
// ordering is what gives spec.md §5's durability guarantee ("a crash
// after release guarantees the mutation is durable").
func (l *Log) Append(revision uint64, at time.Time, command []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.replaying {
		return nil
	}
	entry := LogEntry{At: at, Revision: revision, Command: command}
	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("durability: encode log entry: %w", err)
	}
	line := base64.StdEncoding.EncodeToString(raw)
	if _, err := l.w.WriteString(line); err != nil {
		return fmt.Errorf("durability: write log entry: %w", err)
	}
	if _, err := l.w.WriteString("\r\n"); err != nil {
		return fmt.Errorf("durability: write log entry: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("durability: flush log: %w", err)
	}
	return nil
}

// Sync fsyncs the underlying file. Advisory: callers may invoke this
// periodically from a background goroutine rather than on every Append.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Sync()
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		logger.Errorf("durability: flush on close: %v", err)
	}
	return l.f.Close()
}

// ReplaySince opens a fresh read handle on the log file and calls fn for
// every entry whose revision is >= since, in file order. It does not
// affect the append handle's position.
func ReplaySince(path string, since uint64, fn func(LogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("durability: open log for replay: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return fmt.Errorf("durability: decode log line: %w", err)
		}
		var entry LogEntry
		if err := msgpack.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("durability: decode log entry: %w", err)
		}
		if entry.Revision < since {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return scanner.Err()
}
