// Package testsupport builds fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipEntry is one member of a fixture archive. Names ending in "/" become
// directory entries.
type ZipEntry struct {
	Name string
	Data []byte
}

// BuildZip writes entries, in the given order, into an in-memory ZIP archive
// using deflate compression.
func BuildZip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("create %s: %v", e.Name, err)
		}
		if len(e.Data) == 0 {
			continue
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Pages builds one entry per name whose payload is "data:" + name, which
// lets tests tell extracted members apart.
func Pages(names ...string) []ZipEntry {
	out := make([]ZipEntry, 0, len(names))
	for _, n := range names {
		out = append(out, ZipEntry{Name: n, Data: []byte("data:" + n)})
	}
	return out
}

// PNG encodes a solid w×h image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
