package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/RyanBlaney/phrasebound/logging"
)

const songsKey = "songs"

// SinkError reports a failed read, lock or write of the results file
type SinkError struct {
	Path  string
	Op    string
	Cause error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("results sink %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *SinkError) Unwrap() error {
	return e.Cause
}

// Sink persists song entries
type Sink interface {
	Append(ctx context.Context, entries ...SongEntry) error
}

// FileSink merges entries into a JSON document on disk. Every append reads
// the whole file, appends to its songs array and atomically replaces it
// while holding an advisory file lock, so concurrent processes never
// interleave partial documents.
type FileSink struct {
	path       string
	mu         sync.Mutex
	lock       *flock.Flock
	retryDelay time.Duration
}

// NewFileSink creates a sink writing to path. The lock file lives next to it.
func NewFileSink(path string) *FileSink {
	return &FileSink{
		path:       path,
		lock:       flock.New(path + ".lock"),
		retryDelay: 100 * time.Millisecond,
	}
}

// Path returns the document path
func (s *FileSink) Path() string {
	return s.path
}

// Append adds entries to the document, creating it if absent. A failed
// attempt is retried once; the second failure is returned as *SinkError.
func (s *FileSink) Append(ctx context.Context, entries ...SongEntry) error {
	if len(entries) == 0 {
		return nil
	}

	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "results_sink",
		"function":  "Append",
		"path":      s.path,
	})

	err := s.appendOnce(ctx, entries)
	if err == nil {
		return nil
	}

	logger.Warn("Results write failed, retrying once", logging.Fields{
		"error":   err.Error(),
		"entries": len(entries),
	})

	select {
	case <-ctx.Done():
		return &SinkError{Path: s.path, Op: "append", Cause: ctx.Err()}
	case <-time.After(s.retryDelay):
	}

	if err := s.appendOnce(ctx, entries); err != nil {
		logger.Error(err, "Results write failed after retry")
		return err
	}
	return nil
}

func (s *FileSink) appendOnce(ctx context.Context, entries []SongEntry) error {
	// flock is per open file, so goroutines sharing this sink need the mutex
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return &SinkError{Path: s.path, Op: "lock", Cause: err}
	}
	if !locked {
		return &SinkError{Path: s.path, Op: "lock", Cause: errors.New("lock not acquired")}
	}
	defer s.lock.Unlock()

	doc, songs, err := s.read()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		raw, err := encodeJSON(entry, "")
		if err != nil {
			return &SinkError{Path: s.path, Op: "encode", Cause: err}
		}
		songs = append(songs, raw)
	}

	return s.write(doc, songs)
}

// read loads the document. A missing or empty file is a new document; any
// other unparsable content is an error and leaves the file untouched.
func (s *FileSink) read() (map[string]json.RawMessage, []json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return map[string]json.RawMessage{}, nil, nil
	}
	if err != nil {
		return nil, nil, &SinkError{Path: s.path, Op: "read", Cause: err}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &SinkError{Path: s.path, Op: "decode", Cause: err}
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}

	var songs []json.RawMessage
	if raw, ok := doc[songsKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &songs); err != nil {
			return nil, nil, &SinkError{Path: s.path, Op: "decode", Cause: fmt.Errorf("songs is not an array: %w", err)}
		}
	}
	return doc, songs, nil
}

// write replaces the document through a temp file and rename
func (s *FileSink) write(doc map[string]json.RawMessage, songs []json.RawMessage) error {
	if songs == nil {
		songs = []json.RawMessage{}
	}
	merged := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		merged[k] = v
	}
	merged[songsKey] = songs

	out, err := encodeJSON(merged, "    ")
	if err != nil {
		return &SinkError{Path: s.path, Op: "encode", Cause: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &SinkError{Path: s.path, Op: "write", Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &SinkError{Path: s.path, Op: "write", Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &SinkError{Path: s.path, Op: "write", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &SinkError{Path: s.path, Op: "write", Cause: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &SinkError{Path: s.path, Op: "rename", Cause: err}
	}
	return nil
}

// encodeJSON marshals v without HTML escaping
func encodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if indent == "" {
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}
	return buf.Bytes(), nil
}

// ReadEntries loads the songs array of a document as raw JSON values
func ReadEntries(path string) ([]json.RawMessage, error) {
	_, songs, err := NewFileSink(path).read()
	return songs, err
}

// UnwrittenPath is the sibling file that receives entries a sink could not
// persist
func UnwrittenPath(path string) string {
	return path + ".unwritten.json"
}

// WriteEntries encodes entries to w as a standalone songs document
func WriteEntries(w io.Writer, entries []SongEntry) error {
	if entries == nil {
		entries = []SongEntry{}
	}
	out, err := encodeJSON(map[string]any{songsKey: entries}, "    ")
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
