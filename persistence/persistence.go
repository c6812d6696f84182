// Package persistence implements the document sidecar metadata store and
// its crash-safe write-ahead log. A write proceeds as: write WAL, fsync,
// atomic rename of the WAL over the metadata path, then delete any WAL
// remnant; Recover replays and deletes any WAL left behind by a crash
// before the rename completed.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vellumview/tilecore"
)

const (
	metadataSuffix = ".pdf-editor-metadata.json"
	walSuffix      = ".pdf-editor-wal.json"
)

// ErrNoMetadata is returned by Load when no sidecar exists for a path.
var ErrNoMetadata = errors.New("persistence: no metadata sidecar for path")

// MetadataPath returns the sidecar metadata path for a PDF at pdfPath.
func MetadataPath(pdfPath string) string {
	return pdfPath + metadataSuffix
}

// WALPath returns the write-ahead-log path for a PDF at pdfPath.
func WALPath(pdfPath string) string {
	return pdfPath + walSuffix
}

// MetadataStore round-trips an opaque JSON payload (annotations,
// measurements, text edits, scale systems — schema left to the caller,
// treated here as an opaque blob) to a per-document sidecar file.
type MetadataStore struct {
	pdfPath string
}

// NewMetadataStore returns a store for the sidecar belonging to pdfPath.
func NewMetadataStore(pdfPath string) *MetadataStore {
	return &MetadataStore{pdfPath: pdfPath}
}

// Load reads and returns the current metadata blob, or ErrNoMetadata if no
// sidecar exists yet.
func (s *MetadataStore) Load() (json.RawMessage, error) {
	data, err := os.ReadFile(MetadataPath(s.pdfPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoMetadata
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read metadata: %w", err)
	}
	return json.RawMessage(data), nil
}

// Save writes payload through a WAL: write WAL, fsync, atomic rename over
// the metadata path, delete WAL. On success the sidecar at MetadataPath
// reflects payload and no WAL file remains.
func (s *MetadataStore) Save(payload json.RawMessage) error {
	wal := NewWAL(s.pdfPath)
	if err := wal.Write(payload); err != nil {
		return err
	}
	return wal.Commit()
}

// Exists reports whether a metadata sidecar exists for pdfPath.
func Exists(pdfPath string) bool {
	_, err := os.Stat(MetadataPath(pdfPath))
	return err == nil
}

// Delete removes the metadata sidecar for pdfPath, if any. Not an error if
// it doesn't exist.
func Delete(pdfPath string) error {
	err := os.Remove(MetadataPath(pdfPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// WAL implements the write-ahead-log protocol for a single document's
// metadata sidecar: write, fsync, atomic rename, delete.
type WAL struct {
	pdfPath string
}

// NewWAL returns a WAL coordinator for the sidecar belonging to pdfPath.
func NewWAL(pdfPath string) *WAL {
	return &WAL{pdfPath: pdfPath}
}

// Write serializes payload to the WAL file and fsyncs it. The metadata
// sidecar is untouched until Commit renames the WAL over it.
func (w *WAL) Write(payload json.RawMessage) error {
	path := WALPath(w.pdfPath)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persistence: open wal: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("persistence: write wal: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("persistence: fsync wal: %w", err)
	}
	return f.Close()
}

// Commit atomically renames the WAL file over the metadata sidecar, then
// removes any WAL remnant (the rename already consumed it; this guards
// against a WAL left by an interrupted prior Commit).
func (w *WAL) Commit() error {
	wal := WALPath(w.pdfPath)
	dst := MetadataPath(w.pdfPath)
	if err := os.Rename(wal, dst); err != nil {
		return fmt.Errorf("persistence: commit wal: %w", err)
	}
	return w.removeIfExists()
}

// HasPending reports whether a WAL file exists for this document, meaning
// a prior write crashed between Write and Commit.
func (w *WAL) HasPending() bool {
	_, err := os.Stat(WALPath(w.pdfPath))
	return err == nil
}

// Replay reads a pending WAL's contents without committing it. Callers
// use this during Recover to hand the payload to the document loader
// before the WAL is deleted.
func (w *WAL) Replay() (json.RawMessage, error) {
	data, err := os.ReadFile(WALPath(w.pdfPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read wal: %w", err)
	}
	return json.RawMessage(data), nil
}

func (w *WAL) removeIfExists() error {
	err := os.Remove(WALPath(w.pdfPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RecoveryResult reports the outcome of a Recover call.
type RecoveryResult struct {
	// Recovered is true if a WAL file existed and was replayed.
	Recovered bool
	// Payload is the replayed WAL content, valid only if Recovered.
	Payload json.RawMessage
}

// InvalidationHook is called once recovery completes without error,
// including when there was nothing to recover, so the caller can
// invalidate dependent state such as a compositor scene. It is not called
// when Recover returns an error. It receives whether a WAL was actually
// replayed.
type InvalidationHook func(result RecoveryResult)

// Recover checks for a pending WAL at pdfPath and, if one exists, writes
// its contents over the metadata sidecar (completing the interrupted
// commit) before deleting it. It should be called on startup before
// loading metadata normally. If hook is non-nil it is invoked after
// recovery completes, even when there was nothing to recover.
func Recover(pdfPath string, hook InvalidationHook) (RecoveryResult, error) {
	wal := NewWAL(pdfPath)
	if !wal.HasPending() {
		result := RecoveryResult{}
		if hook != nil {
			hook(result)
		}
		return result, nil
	}

	payload, err := wal.Replay()
	if err != nil {
		return RecoveryResult{}, err
	}

	if err := wal.Commit(); err != nil {
		return RecoveryResult{}, err
	}

	tilecore.Logger().Info("persistence: recovered WAL", "path", filepath.Base(pdfPath))

	result := RecoveryResult{Recovered: true, Payload: payload}
	if hook != nil {
		hook(result)
	}
	return result, nil
}
