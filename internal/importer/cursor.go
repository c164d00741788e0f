package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cursorFile is the checkpoint file name inside the data directory.
const cursorFile = "cursor.json"

// Cursor is the resumable position of an import.
type Cursor struct {
	Stage          string    `json:"stage"`
	FileIndex      int       `json:"file_index"`
	RowOffset      int       `json:"row_offset"`
	TotalProcessed int       `json:"total_processed"`
	TotalSkipped   int       `json:"total_skipped"`
	TotalFailed    int       `json:"total_failed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CursorTracker keeps the cursor and writes it every saveEvery processed rows.
// Writes go through a temp file and rename, so a crash leaves the previous checkpoint.
type CursorTracker struct {
	mu        sync.Mutex
	cursor    Cursor
	path      string
	saveEvery int
	dirty     bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewCursorTracker loads dir/cursor.json if it exists.
func NewCursorTracker(dir string, saveEvery int, logger *zap.Logger) (*CursorTracker, error) {
	if saveEvery <= 0 {
		saveEvery = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ct := &CursorTracker{
		path:      filepath.Join(filepath.Clean(dir), cursorFile),
		saveEvery: saveEvery,
		logger:    logger,
		now:       time.Now,
	}

	data, err := os.ReadFile(ct.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &ct.cursor); err != nil {
			return nil, fmt.Errorf("parse cursor %s: %w", ct.path, err)
		}
		logger.Info("resuming from cursor",
			zap.String("stage", ct.cursor.Stage),
			zap.Int("file_index", ct.cursor.FileIndex),
			zap.Int("row_offset", ct.cursor.RowOffset),
			zap.Int("processed", ct.cursor.TotalProcessed),
		)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read cursor %s: %w", ct.path, err)
	}
	return ct, nil
}

// Get returns a copy of the cursor.
func (ct *CursorTracker) Get() Cursor {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.cursor
}

// SetStage records the stage and saves immediately.
func (ct *CursorTracker) SetStage(stage string) {
	ct.mu.Lock()
	ct.cursor.Stage = stage
	ct.touch()
	ct.mu.Unlock()
	ct.Save()
}

// Advance moves the cursor past a finished batch. Out-of-order batches never move it backwards.
func (ct *CursorTracker) Advance(fileIndex, rowOffset, processed, skipped, failed int) {
	ct.mu.Lock()
	if fileIndex > ct.cursor.FileIndex || (fileIndex == ct.cursor.FileIndex && rowOffset > ct.cursor.RowOffset) {
		ct.cursor.FileIndex = fileIndex
		ct.cursor.RowOffset = rowOffset
	}
	before := ct.cursor.TotalProcessed
	ct.cursor.TotalProcessed += processed
	ct.cursor.TotalSkipped += skipped
	ct.cursor.TotalFailed += failed
	ct.touch()
	shouldSave := before/ct.saveEvery != ct.cursor.TotalProcessed/ct.saveEvery
	ct.mu.Unlock()

	if shouldSave {
		ct.Save()
	}
}

// Save writes the cursor if it changed since the last write.
func (ct *CursorTracker) Save() {
	ct.mu.Lock()
	if !ct.dirty {
		ct.mu.Unlock()
		return
	}
	data, err := json.MarshalIndent(ct.cursor, "", "  ")
	ct.dirty = false
	ct.mu.Unlock()
	if err != nil {
		ct.logger.Error("cursor marshal failed", zap.Error(err))
		return
	}

	tmp := ct.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		ct.logger.Error("cursor write failed", zap.Error(err))
		ct.markDirty()
		return
	}
	if err := os.Rename(tmp, ct.path); err != nil {
		ct.logger.Error("cursor rename failed", zap.Error(err))
		ct.markDirty()
	}
}

// Done marks the import finished.
func (ct *CursorTracker) Done() {
	ct.SetStage("done")
}

// Reset discards any saved progress.
func (ct *CursorTracker) Reset() {
	ct.mu.Lock()
	ct.cursor = Cursor{}
	ct.touch()
	ct.mu.Unlock()
	ct.Save()
}

func (ct *CursorTracker) touch() {
	ct.cursor.UpdatedAt = ct.now().UTC()
	ct.dirty = true
}

func (ct *CursorTracker) markDirty() {
	ct.mu.Lock()
	ct.dirty = true
	ct.mu.Unlock()
}
