package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

// DefaultMaxEntries caps the persisted log
const DefaultMaxEntries = 100

// Sink receives a copy of every record, e.g. an audit database
type Sink interface {
	Save(ctx context.Context, rec models.HistoryRecord) error
}

// Recorder owns the history file. It assumes a single writer.
type Recorder struct {
	path  string
	max   int
	sinks []Sink
	now   func() time.Time
	log   *logger.Logger
}

// NewRecorder creates a recorder for path keeping at most max records
func NewRecorder(path string, max int, log *logger.Logger, sinks ...Sink) *Recorder {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Recorder{
		path:  path,
		max:   max,
		sinks: sinks,
		now:   time.Now,
		log:   log.WithComponent("history"),
	}
}

// Path returns the history file location
func (r *Recorder) Path() string {
	return r.path
}

// Record appends one cycle to the history. It never fails outward:
// read and write problems are logged and the cycle carries on.
func (r *Recorder) Record(ctx context.Context, content models.GeneratedContent, attempts []models.DeliveryAttempt) {
	rec := models.HistoryRecord{
		Timestamp: r.now().UTC(),
		Text:      content.Text,
		Origin:    content.Origin,
		Results:   models.Summarize(attempts),
	}

	records := append(r.Records(), rec)
	records = Evict(records, r.max)

	if err := r.write(records); err != nil {
		r.log.Error().Err(err).Str("file", r.path).Msg("Failed to save history")
	} else {
		r.log.Debug().Int("entries", len(records)).Msg("History saved")
	}

	for _, sink := range r.sinks {
		if err := sink.Save(ctx, rec); err != nil {
			r.log.Warn().Err(err).Msg("History sink failed")
		}
	}
}

// Records returns the persisted history, or an empty slice when the file
// is missing or unreadable
func (r *Recorder) Records() []models.HistoryRecord {
	records, err := r.Load()
	if err != nil {
		r.log.Warn().Err(err).Str("file", r.path).Msg("Discarding unreadable history")
		return []models.HistoryRecord{}
	}
	return records
}

// Load reads the history file. A missing file is an empty history.
func (r *Recorder) Load() ([]models.HistoryRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.HistoryRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var records []models.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records, nil
}

// Evict keeps the newest max records in their original order.
// Slices already within the limit are returned unchanged.
func Evict(records []models.HistoryRecord, max int) []models.HistoryRecord {
	if len(records) <= max {
		return records
	}
	kept := make([]models.HistoryRecord, max)
	copy(kept, records[len(records)-max:])
	return kept
}

// write replaces the file through a temp file and rename so readers never see a partial write
func (r *Recorder) write(records []models.HistoryRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
