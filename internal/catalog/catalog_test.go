package catalog

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-catalog-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func row(runID, src, sha, rule string) Row {
	return Row{
		RunID:    runID,
		Time:     time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
		Rule:     rule,
		Src:      src,
		MIME:     "image/png",
		Ext:      ".png",
		SHA256:   sha,
		Size:     10,
		CopiedTo: "/dest/x",
		Metadata: "{}",
	}
}

func TestInsertAndRecent(t *testing.T) {
	db := testDB(t)
	for _, r := range []Row{
		row("run1", "/a", "s1", "images"),
		row("run1", "/b", "s2", "images"),
		row("run2", "/c", "s3", "docs"),
	} {
		if err := db.Insert(r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest insertion first.
	if got[0].Src != "/c" || got[1].Src != "/b" {
		t.Errorf("order = %s, %s", got[0].Src, got[1].Src)
	}
}

func TestBySHA256AcrossRuns(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(row("run1", "/a/x.png", "dupe", "images"))
	_ = db.Insert(row("run2", "/b/x.png", "dupe", "images"))
	_ = db.Insert(row("run2", "/b/y.png", "other", "images"))

	got, err := db.BySHA256("dupe")
	if err != nil {
		t.Fatalf("BySHA256: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].RunID != "run1" || got[1].RunID != "run2" {
		t.Errorf("runs = %s, %s", got[0].RunID, got[1].RunID)
	}
}

func TestCountByRule(t *testing.T) {
	db := testDB(t)
	_ = db.Insert(row("run1", "/a", "s1", "images"))
	_ = db.Insert(row("run1", "/b", "s2", "images"))
	_ = db.Insert(row("run1", "/c", "s3", "docs"))
	_ = db.Insert(row("run2", "/d", "s4", "images"))

	got, err := db.CountByRule("run1")
	if err != nil {
		t.Fatalf("CountByRule: %v", err)
	}
	if got["images"] != 2 || got["docs"] != 1 {
		t.Errorf("counts = %v", got)
	}
}

func TestRecentEmpty(t *testing.T) {
	db := testDB(t)
	got, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
