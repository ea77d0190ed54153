package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

func records(n int) []models.HistoryRecord {
	out := make([]models.HistoryRecord, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.HistoryRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Text:      fmt.Sprintf("post %d", i),
			Results:   []models.AttemptSummary{},
		}
	}
	return out
}

func TestEvictWithinLimitIsNoop(t *testing.T) {
	for _, n := range []int{0, 1, 99, 100} {
		in := records(n)
		assert.Equal(t, in, Evict(in, 100))
	}
}

func TestEvictKeepsNewestInOrder(t *testing.T) {
	in := records(130)
	got := Evict(in, 100)

	require.Len(t, got, 100)
	assert.Equal(t, "post 30", got[0].Text)
	assert.Equal(t, "post 129", got[99].Text)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
	// idempotent
	assert.Equal(t, got, Evict(got, 100))
}

var sampleAttempts = []models.DeliveryAttempt{
	{Account: models.Account{ID: 1}, Outcome: models.OutcomeSuccess, ProviderID: "123"},
	{Account: models.Account{ID: 2}, Outcome: models.OutcomeSimulated, ProviderID: "sim-x",
		ErrorClass: models.ErrorClassForbidden, Error: "forbidden"},
}

func TestRecordCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	r := NewRecorder(path, 100, logger.Nop())

	r.Record(context.Background(), models.GeneratedContent{Text: "hello", Origin: models.OriginGenerated}, sampleAttempts)

	got, err := r.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, models.OriginGenerated, got[0].Origin)
	require.Len(t, got[0].Results, 2)

	first, second := got[0].Results[0], got[0].Results[1]
	assert.True(t, first.Success)
	assert.False(t, first.Simulated)
	require.NotNil(t, first.ID)
	assert.Equal(t, "123", *first.ID)
	assert.Nil(t, first.Error)

	assert.False(t, second.Success)
	assert.True(t, second.Simulated)
	require.NotNil(t, second.Error)
	assert.Equal(t, "forbidden", *second.Error)
}

func TestRecordFileIsPrettyJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	NewRecorder(path, 100, logger.Nop()).Record(context.Background(), models.GeneratedContent{Text: "x"}, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('['), data[0])
	assert.Contains(t, string(data), "\n  {")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 1)
}

func TestRecordAtCapacityEvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	data, err := json.Marshal(records(100))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r := NewRecorder(path, 100, logger.Nop())
	r.Record(context.Background(), models.GeneratedContent{Text: "newest"}, sampleAttempts)

	got, err := r.Load()
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, "post 1", got[0].Text)
	assert.Equal(t, "newest", got[99].Text)
	for _, rec := range got {
		assert.NotEqual(t, "post 0", rec.Text)
	}
}

func TestRecordDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	r := NewRecorder(path, 100, logger.Nop())
	_, err := r.Load()
	require.Error(t, err)

	r.Record(context.Background(), models.GeneratedContent{Text: "fresh"}, nil)

	got, err := r.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestRecordWriteFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be makes the rename fail
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	r := NewRecorder(path, 100, logger.Nop())
	assert.NotPanics(t, func() {
		r.Record(context.Background(), models.GeneratedContent{Text: "x"}, nil)
	})
}

type memSink struct {
	got []models.HistoryRecord
	err error
}

func (m *memSink) Save(_ context.Context, rec models.HistoryRecord) error {
	m.got = append(m.got, rec)
	return m.err
}

func TestRecordFeedsSinks(t *testing.T) {
	ok := &memSink{}
	broken := &memSink{err: errors.New("db down")}
	path := filepath.Join(t.TempDir(), "history.json")

	r := NewRecorder(path, 100, logger.Nop(), broken, ok)
	r.Record(context.Background(), models.GeneratedContent{Text: "x"}, sampleAttempts)

	require.Len(t, ok.got, 1)
	assert.Len(t, ok.got[0].Results, 2)
	assert.Len(t, broken.got, 1)

	got, err := r.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
