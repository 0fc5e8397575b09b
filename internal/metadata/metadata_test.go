package metadata

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRegistryPrefixOrder(t *testing.T) {
	var called []string
	reg := NewRegistry().
		Register("image/png", func(string) map[string]any {
			called = append(called, "png")
			return map[string]any{"by": "png"}
		}).
		Register("image/", func(string) map[string]any {
			called = append(called, "generic")
			return map[string]any{"by": "generic"}
		})

	got := reg.Extract("image/png", "x")
	if got["by"] != "png" {
		t.Errorf("first registered matching prefix wins, got %v", got)
	}
	got = reg.Extract("image/jpeg", "x")
	if got["by"] != "generic" {
		t.Errorf("fell through to the broader prefix, got %v", got)
	}
	if len(called) != 2 {
		t.Errorf("exactly one extractor per file, called %v", called)
	}
}

func TestRegistryNoMatch(t *testing.T) {
	reg := NewRegistry().Register("image/", func(string) map[string]any {
		t.Fatal("must not be called")
		return nil
	})
	got := reg.Extract("text/plain", "x")
	if len(got) != 0 {
		t.Errorf("no matching prefix yields an empty value, got %v", got)
	}
}

func TestRegistryRecoversPanic(t *testing.T) {
	reg := NewRegistry().Register("image/", func(string) map[string]any {
		panic("boom")
	})
	got := reg.Extract("image/png", "x")
	if got[ErrorKey] != "boom" {
		t.Errorf("panic should become an error-tagged value, got %v", got)
	}
}

func TestErrorValue(t *testing.T) {
	v := ErrorValue(errors.New("nope"))
	if v[ErrorKey] != "nope" {
		t.Errorf("got %v", v)
	}
}

func TestImageJPEGDimensions(t *testing.T) {
	p := writeImage(t, "photo.jpg", func(buf *bytes.Buffer) error {
		return jpeg.Encode(buf, image.NewRGBA(image.Rect(0, 0, 100, 50)), nil)
	})

	got := extractImage(p)
	if got["width"] != 100 || got["height"] != 50 {
		t.Errorf("dimensions = %vx%v, want 100x50", got["width"], got["height"])
	}
	if got["format"] != "JPEG" {
		t.Errorf("format = %v, want JPEG", got["format"])
	}
	exif, ok := got["exif"].(map[string]any)
	if !ok {
		t.Fatalf("exif missing: %v", got)
	}
	// Encoder writes no EXIF; the highlights are simply empty.
	if len(exif) != 0 {
		t.Errorf("unexpected exif tags: %v", exif)
	}
}

func TestImagePNGExtraInfo(t *testing.T) {
	p := writeImage(t, "pic.png", func(buf *bytes.Buffer) error {
		return png.Encode(buf, image.NewGray(image.Rect(0, 0, 4, 4)))
	})

	got := extractImage(p)
	if got["format"] != "PNG" {
		t.Errorf("format = %v, want PNG", got["format"])
	}
	extra, ok := got["extra_info"].(map[string]any)
	if !ok || extra["color_model"] != "Gray" {
		t.Errorf("extra_info = %v, want color_model Gray", got["extra_info"])
	}
}

func TestImageUndecodable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "junk.jpg")
	if err := os.WriteFile(p, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := extractImage(p)
	if _, ok := got[ErrorKey]; !ok {
		t.Errorf("decode failure must be error-tagged, got %v", got)
	}
}

func TestImageMissingFile(t *testing.T) {
	got := extractImage(filepath.Join(t.TempDir(), "gone.png"))
	if _, ok := got[ErrorKey]; !ok {
		t.Errorf("open failure must be error-tagged, got %v", got)
	}
}
