package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// writeFile writes to a temporary file next to path, then renames it over path.
func writeFile(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(fs, dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return err
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}

// readLines calls fn for each line of path, numbered from 1. Lines have no
// length limit; plans saved into the workout log travel as one escaped line.
func readLines(fs afero.Fs, path string, fn func(n int, line string)) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			fn(n, strings.TrimSuffix(line, "\r"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
