/*
Package fileresolver provides an implementation of resolver.Store
that keeps model exports as JSON files in a directory.
*/
package fileresolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xh3b4sd/tracer"

	"github.com/pbanos/arboretum/resolver"
)

type fileStore struct {
	dir string
}

/*
New takes the path to a directory and returns a resolver.Store that
keeps the export of each model in a file of the directory named after
the model ID, with slashes replaced by underscores and a .json
extension. The directory is created if it does not exist.
*/
func New(dir string) (resolver.Store, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return &fileStore{dir}, nil
}

// FileName returns the name of the file holding the export of the
// model with the given ID
func FileName(id string) string {
	return strings.ReplaceAll(id, "/", "_") + ".json"
}

func (fs *fileStore) path(id string) string {
	return filepath.Join(fs.dir, FileName(id))
}

func (fs *fileStore) Resolve(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	export, err := os.ReadFile(fs.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("resolving %s: %w", id, resolver.ErrModelNotFound)
	}
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return export, nil
}

func (fs *fileStore) Store(ctx context.Context, id string, export []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := fs.path(id) + ".tmp"
	err := os.WriteFile(tmp, export, 0o644)
	if err != nil {
		return tracer.Mask(err)
	}
	err = os.Rename(tmp, fs.path(id))
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (fs *fileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(fs.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return tracer.Mask(err)
	}
	return nil
}

func (fs *fileStore) Close(ctx context.Context) error {
	return nil
}
