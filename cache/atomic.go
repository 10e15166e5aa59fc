package cache

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

const writeBufSize = 64 * 1024

// writeAtomic copies r into a temporary file next to dest and renames it over
// dest once the data is synced. On failure dest is untouched and the
// temporary file is removed.
func writeAtomic(dest string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".vidx-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	// CreateTemp always uses 0600
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}

	bw := bufio.NewWriterSize(tmp, writeBufSize)
	if _, err := io.Copy(bw, r); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// Best effort: persist the rename on platforms that support fsync on directories.
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
