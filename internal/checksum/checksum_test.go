package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSumKnownVector(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s, want %s", got, empty)
	}

	const abc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != abc {
		t.Errorf("Sum(abc) = %s, want %s", got, abc)
	}
}

func TestSumFileMatchesSum(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.bin")
	content := make([]byte, 3*1024*1024) // spans multiple read chunks
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}

	sha, size, err := SumFile(p)
	if err != nil {
		t.Fatalf("SumFile: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	if want := Sum(content); sha != want {
		t.Errorf("digest = %s, want %s", sha, want)
	}
}

func TestSumFileStable(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, []byte("stable"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, _, err := SumFile(p)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := SumFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("digests differ across runs: %s vs %s", a, b)
	}
}

func TestSumFileMissing(t *testing.T) {
	if _, _, err := SumFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
