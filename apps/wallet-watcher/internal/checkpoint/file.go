package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// File stores the checkpoint as a single line of text at <base>.<address>.
// The file holds only the signature, so a loaded checkpoint has Slot 0.
type File struct {
	path string
}

func NewFile(base, address string) *File {
	return &File{path: fmt.Sprintf("%s.%s", base, address)}
}

// Path returns the file the checkpoint lives in.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (ledger.Checkpoint, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return ledger.Checkpoint{}, nil
	}
	if err != nil {
		return ledger.Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return ledger.Checkpoint{Signature: strings.TrimSpace(line)}, nil
}

// Save replaces the file through a temp file and rename, so readers see the old or the new line.
func (f *File) Save(ctx context.Context, cp ledger.Checkpoint) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if _, err := tmp.WriteString(cp.Signature + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

func (f *File) Reset(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
