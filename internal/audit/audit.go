// Package audit writes the per-run append-only audit log.
//
// The sink is the one mutable resource shared by all pipeline workers.
// A single mutex serializes every row: a raw CSV writer gives no
// atomicity guarantee under concurrent writes, and an interleaved row
// would corrupt the log.
package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Columns is the fixed audit schema, in order.
var Columns = []string{"time", "rule", "src", "mime", "ext", "sha256", "size", "copied_to", "metadata"}

// DryRunMarker is written to copied_to when the physical copy was
// skipped.
const DryRunMarker = "(dry-run)"

const timeFormat = "2006-01-02T15:04:05Z"

// Record is one matched-and-processed file.
type Record struct {
	Time     time.Time
	Rule     string
	Src      string
	MIME     string
	Ext      string
	SHA256   string
	Size     int64
	CopiedTo string
	Metadata map[string]any
}

// Sink appends records to a CSV file created for one run. Append is
// safe for concurrent use; Close is idempotent.
type Sink struct {
	path string

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer

	closeOnce sync.Once
	closeErr  error
}

// Open creates <dir>/audit_<unixtime>.csv (creating dir if needed) and
// writes the header row.
func Open(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create dest dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("audit_%d.csv", time.Now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audit: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("audit: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("audit: write header: %w", err)
	}
	return &Sink{path: path, f: f, w: w}, nil
}

// Path returns the audit file location.
func (s *Sink) Path() string { return s.path }

// Append writes one complete row and flushes it to the file, so a crash
// mid-run loses at most the row being written. An error here means the
// row could not be durably recorded; callers must treat that as fatal
// to the run rather than drop the row silently.
func (s *Sink) Append(r Record) error {
	row := []string{
		r.Time.UTC().Format(timeFormat),
		r.Rule,
		r.Src,
		r.MIME,
		r.Ext,
		r.SHA256,
		strconv.FormatInt(r.Size, 10),
		r.CopiedTo,
		MarshalMetadata(r.Metadata),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("audit: write row for %s: %w", r.Src, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("audit: flush row for %s: %w", r.Src, err)
	}
	return nil
}

// Close flushes and closes the sink. Calling it again returns the first
// result.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.w.Flush()
		s.closeErr = s.w.Error()
		if err := s.f.Close(); s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// MarshalMetadata serializes a metadata value for the metadata column.
// Values JSON cannot represent fall back to their fmt form so a row is
// always complete.
func MarshalMetadata(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(b)
}
