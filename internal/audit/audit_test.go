package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestOpenWritesHeader(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if base := filepath.Base(s.Path()); !strings.HasPrefix(base, "audit_") || !strings.HasSuffix(base, ".csv") {
		t.Errorf("unexpected audit filename %q", base)
	}
	rows := readAll(t, s.Path())
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
	for i, col := range Columns {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
}

func TestAppendRow(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := Record{
		Time:     time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC),
		Rule:     "All images",
		Src:      "/src/a.jpg",
		MIME:     "image/jpeg",
		Ext:      ".jpg",
		SHA256:   "deadbeef",
		Size:     42,
		CopiedTo: DryRunMarker,
		Metadata: map[string]any{"width": 100, "height": 50},
	}
	if err := s.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	rows := readAll(t, s.Path())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	got := rows[1]
	if got[0] != "2026-08-23T10:30:00Z" {
		t.Errorf("time = %q", got[0])
	}
	if got[1] != "All images" || got[6] != "42" || got[7] != DryRunMarker {
		t.Errorf("row = %v", got)
	}
	if !strings.Contains(got[8], `"width":100`) {
		t.Errorf("metadata = %q", got[8])
	}
}

func TestAppendConcurrentRowsComplete(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(Record{
				Time:   time.Now(),
				Rule:   "r",
				Src:    fmt.Sprintf("/src/%d", i),
				MIME:   "application/octet-stream",
				SHA256: strings.Repeat("a", 64),
			})
		}()
	}
	wg.Wait()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	rows := readAll(t, s.Path())
	if len(rows) != n+1 {
		t.Fatalf("rows = %d, want %d", len(rows), n+1)
	}
	seen := make(map[string]bool, n)
	for _, row := range rows[1:] {
		if len(row) != len(Columns) {
			t.Fatalf("malformed row: %v", row)
		}
		seen[row[2]] = true
	}
	if len(seen) != n {
		t.Errorf("distinct srcs = %d, want %d (lost or duplicated rows)", len(seen), n)
	}
}

func TestCloseIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMarshalMetadata(t *testing.T) {
	if got := MarshalMetadata(nil); got != "{}" {
		t.Errorf("nil metadata = %q", got)
	}
	if got := MarshalMetadata(map[string]any{"k": "v"}); got != `{"k":"v"}` {
		t.Errorf("got %q", got)
	}
	// Unrepresentable values fall back to the fmt form.
	got := MarshalMetadata(map[string]any{"f": func() {}})
	if got == "" || strings.HasPrefix(got, "{\"") {
		t.Errorf("expected fmt fallback, got %q", got)
	}
}
