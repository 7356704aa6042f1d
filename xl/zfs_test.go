package xl

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestZipStorageSourceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	zs := NewZipStorage(&buf)
	if err := zs.WriteBlob("/xl/workbook.xml", []byte("<workbook/>")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := zs.WriteBlob("/[Content_Types].xml", []byte("<Types/>")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	zs.Close()

	src, err := NewZipSource(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewZipSource: %v", err)
	}

	paths, err := src.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(paths)
	want := []string{"/[Content_Types].xml", "/xl/workbook.xml"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("List() = %v, want %v", paths, want)
	}

	got, err := src.ReadBlob("/xl/workbook.xml")
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != "<workbook/>" {
		t.Errorf("ReadBlob = %q", got)
	}
}

func TestDirStorageSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := NewDirStorage(dir)
	if err := ds.WriteBlob("/xl/styles.xml", []byte("<styleSheet/>")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "xl", "styles.xml")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	src := NewDirSource(dir)
	paths, err := src.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/xl/styles.xml" {
		t.Fatalf("List() = %v, want [/xl/styles.xml]", paths)
	}

	got, err := src.ReadBlob("/xl/styles.xml")
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != "<styleSheet/>" {
		t.Errorf("ReadBlob = %q", got)
	}
}
