package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"
)

// DocumentStore persists the snapshot as a single JSON document with a
// backup-on-write safety net.
//
// Save protocol: write the new content to a temp file; if a prior primary
// file exists, copy it to the backup path before promoting the temp file to
// the primary path. The backup therefore always holds the last
// successfully-persisted prior state, never a half-written one.
type DocumentStore struct {
	path       string
	backupPath string

	// promotion seam, overridable in tests to simulate a crash between
	// backup copy and promote
	rename func(oldpath, newpath string) error
}

func NewDocumentStore(path, backupPath string) *DocumentStore {
	return &DocumentStore{
		path:       path,
		backupPath: backupPath,
		rename:     os.Rename,
	}
}

func (s *DocumentStore) Save(ctx context.Context, snap core.Snapshot) error {
	snap.LastSaved = time.Now()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.backupPath); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("back up previous state: %w", err)
		}
	}
	if err := s.rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("promote temp file: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		"path", s.path,
		"transactions", len(snap.Transactions),
		"rules", len(snap.Rules))
	return nil
}

// Load reads the primary document. An absent primary starts empty. A
// present but unparseable primary falls back to the backup, restoring
// transactions only; rules and budget are intentionally not restored on
// that path. An unusable backup degrades to an empty snapshot.
func (s *DocumentStore) Load(ctx context.Context) (core.Snapshot, error) {
	snap, err := readSnapshot(s.path)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		slog.InfoContext(ctx, "No ledger file yet, starting empty", "path", s.path)
		return core.Snapshot{}, nil
	}

	slog.WarnContext(ctx, "Primary ledger file unusable, falling back to backup",
		"path", s.path, "error", err)
	backup, berr := readSnapshot(s.backupPath)
	if berr != nil {
		slog.WarnContext(ctx, "Backup unusable, starting with empty ledger",
			"path", s.backupPath, "error", berr)
		return core.Snapshot{}, nil
	}
	slog.InfoContext(ctx, "Restored transactions from backup",
		"path", s.backupPath, "transactions", len(backup.Transactions))
	return core.Snapshot{Transactions: backup.Transactions}, nil
}

func (s *DocumentStore) Close() error {
	return nil
}

func readSnapshot(path string) (core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Snapshot{}, err
	}
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
