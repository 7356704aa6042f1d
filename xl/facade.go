package xl

import (
	"bytes"
	"io"
	"os"
)

// OpenBytes opens a workbook held entirely in memory as .xlsx bytes.
func OpenBytes(data []byte) (*Workbook, error) {
	src, err := NewZipSource(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return Open(src)
}

// OpenFile opens a workbook from a .xlsx file on disk.
func OpenFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	src, err := NewZipSource(f, info.Size())
	if err != nil {
		return nil, err
	}
	return Open(src)
}

// OpenDir opens a workbook from an exploded directory tree of parts,
// the layout NewDirStorage writes and NewDirSource reads.
func OpenDir(dir string) (*Workbook, error) {
	return Open(NewDirSource(dir))
}

// Save writes wb out through s (a ZipStorage or DirStorage), the
// inverse of Open/OpenFile/OpenDir.
func (wb *Workbook) Save(s Storage) error {
	return NewWriter(s).Write(wb)
}

// SaveFile writes wb as a .xlsx file at path, creating or truncating it.
func (wb *Workbook) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zs := NewZipStorage(f)
	if err := wb.Save(zs); err != nil {
		zs.Close()
		return err
	}
	zs.Close()
	return nil
}

// WriteTo serializes wb as .xlsx bytes into w, letting callers stream a
// generated workbook without touching the filesystem (e.g. an HTTP
// response body).
func (wb *Workbook) WriteTo(w io.Writer) error {
	zs := NewZipStorage(w)
	if err := wb.Save(zs); err != nil {
		zs.Close()
		return err
	}
	zs.Close()
	return nil
}
