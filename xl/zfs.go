package xl

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the interface for writing Excel file parts (XML and media files).
// Implementations can write to ZIP archives or directory structures.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes Excel file parts to a directory structure on disk.
// This is useful for debugging as it allows inspection of generated XML files.
type DirStorage struct {
	Dir string // Root directory path
}

// ZipStorage writes Excel file parts to a ZIP archive, creating a standard .xlsx file.
type ZipStorage struct {
	z *zip.Writer
}

// NewDirStorage creates a new directory-based storage that writes files to the specified directory.
// The directory will be created if it doesn't exist.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{
		Dir: dir,
	}
}

// WriteBlob writes a file part to the directory structure.
// Creates any necessary parent directories automatically.
func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, path)
	err := os.MkdirAll(filepath.Dir(fn), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0666)
}

// NewZipStorage creates a new ZIP-based storage that writes to the given writer.
// The writer is typically a file opened for writing (e.g., os.Create("output.xlsx")).
func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

// WriteBlob writes a file part to the ZIP archive.
// Each part becomes a file entry in the ZIP with the specified path.
func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close finalizes the ZIP archive. Must be called after all writes are complete.
// Failure to call Close will result in an invalid/corrupted Excel file.
func (zs *ZipStorage) Close() {
	zs.z.Close()
}

// Source is the read-side counterpart to Storage: anything that can list
// and hand back the part paths of a package, independent of whether the
// bytes live in a ZIP archive or an exploded directory tree.
type Source interface {
	ReadBlob(path string) ([]byte, error)
	List() ([]string, error)
}

// DirSource reads Excel file parts from a directory structure on disk,
// the read-side pair of DirStorage.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource { return &DirSource{Dir: dir} }

func (ds *DirSource) ReadBlob(path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")
	return os.ReadFile(filepath.Join(ds.Dir, path))
}

func (ds *DirSource) List() ([]string, error) {
	var out []string
	err := filepath.Walk(ds.Dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ds.Dir, p)
		if err != nil {
			return err
		}
		out = append(out, "/"+filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

// ZipSource reads Excel file parts from a ZIP archive, the read-side
// pair of ZipStorage. Unlike ZipStorage it needs random access
// (io.ReaderAt) to build the central directory, so it is constructed
// from bytes or a file rather than a streaming io.Reader.
type ZipSource struct {
	r *zip.Reader
}

// NewZipSource opens a ZIP archive for reading given its raw bytes and
// total size.
func NewZipSource(r io.ReaderAt, size int64) (*ZipSource, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return &ZipSource{r: zr}, nil
}

func (zs *ZipSource) ReadBlob(path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")
	for _, f := range zs.r.File {
		if f.Name == path {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, os.ErrNotExist
}

func (zs *ZipSource) List() ([]string, error) {
	out := make([]string, 0, len(zs.r.File))
	for _, f := range zs.r.File {
		if !f.FileInfo().IsDir() {
			out = append(out, "/"+f.Name)
		}
	}
	return out, nil
}
