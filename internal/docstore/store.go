package docstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devwebtn/facturation/internal/core"
)

// Store persists documents (spec PDFs, scanned invoice images) and hands
// back opaque references.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// DiskStore keeps documents under a root directory.
type DiskStore struct {
	Root string
}

func NewDisk(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{Root: root}, nil
}

func (s *DiskStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return "", core.Validation("nom de document invalide", nil)
	}
	path := filepath.Join(s.Root, name)
	f, err := os.Create(path)
	if err != nil {
		return "", core.External("document store save", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", core.External("document store write", err)
	}
	return name, nil
}

func (s *DiskStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Root, filepath.Base(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NotFound("document")
		}
		return nil, core.External("document store open", err)
	}
	return f, nil
}

func (s *DiskStore) Exists(_ context.Context, ref string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.Root, filepath.Base(ref)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, core.External("document store stat", err)
}
