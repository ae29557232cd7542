package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/etnz/timberline"
)

// File stores each snapshot as a JSON document in a directory, in a file
// named "<prefix>-<name>.json", e.g. "himalaya-latest.json".
type File struct {
	dir    string
	prefix string
}

// NewFile returns a store in dir. The directory is created on first write.
func NewFile(dir, prefix string) *File {
	return &File{dir: dir, prefix: prefix}
}

// Path returns the file of a snapshot.
func (f *File) Path(name Name) string {
	base := string(name) + ".json"
	if f.prefix != "" {
		base = f.prefix + "-" + base
	}
	return filepath.Join(f.dir, base)
}

func (f *File) Get(_ context.Context, name Name) (timberline.Snapshot, error) {
	file := f.Path(name)
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return timberline.Snapshot{}, &notFoundError{name}
	}
	if err != nil {
		return timberline.Snapshot{}, fmt.Errorf("cannot read snapshot %s: %w", name, err)
	}
	s, err := timberline.ParseSnapshot(data)
	if err != nil {
		return timberline.Snapshot{}, fmt.Errorf("invalid data format in %s: %w", filepath.Base(file), err)
	}
	return s, nil
}

// Put writes the snapshot to a temporary file, then renames it over the
// previous one.
func (f *File) Put(_ context.Context, name Name, s timberline.Snapshot) error {
	data, err := timberline.MarshalSnapshot(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}

	file := f.Path(name)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot write snapshot %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("cannot replace snapshot %s: %w", name, err)
	}
	return nil
}
