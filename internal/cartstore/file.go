package cartstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/noah-isme/cafe-cart/internal/cart"
)

// File keeps a single cart in a JSON file. Writes go to a temporary file in
// the same directory which is then renamed over the target.
type File struct {
	Path string
}

func (f File) Backend() string { return "file" }

// ForSession returns f itself; a file holds exactly one cart.
func (f File) ForSession(context.Context, string) cart.Persister { return f }

func (f File) Load() (cart.Snapshot, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	snap, err := cart.DecodeSnapshot(data)
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (f File) Save(snap cart.Snapshot) error {
	if f.Path == "" {
		return ErrNotConfigured
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cartstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.tmp")
	if err != nil {
		return fmt.Errorf("cartstore: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cartstore: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cartstore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cartstore: close: %w", err)
	}
	return os.Rename(tmp.Name(), f.Path)
}
