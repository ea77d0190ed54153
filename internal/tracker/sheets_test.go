package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/social-autoposter/internal/config"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

type fakeSheets struct {
	mu       sync.Mutex
	calls    []string
	appended [][]interface{}
	hasSheet bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-1"):
		f.calls = append(f.calls, "get")
		title := "Other"
		if f.hasSheet {
			title = "Deliveries"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"sheets":        []any{map[string]any{"properties": map[string]any{"title": title}}},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add-sheet")
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "read-headers")
		json.NewEncoder(w).Encode(map[string]any{"range": "Deliveries!A1:H1"})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "write-headers")
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTracker(t *testing.T, fake *fakeSheets) *SheetsTracker {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	tr, err := NewSheetsTracker(context.Background(),
		config.TrackerConfig{SpreadsheetID: "sheet-1"},
		logger.Nop(),
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	return tr
}

func strPtr(s string) *string { return &s }

func record() models.HistoryRecord {
	return models.HistoryRecord{
		Timestamp: time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC),
		Text:      "Ship small PRs. #WebDev #100DaysOfCode",
		Origin:    models.OriginGenerated,
		Results: []models.AttemptSummary{
			{Account: 1, Success: true, Outcome: models.OutcomeSuccess, ID: strPtr("1799")},
			{Account: 2, Simulated: true, Outcome: models.OutcomeSimulated, ID: strPtr("sim-x"),
				ErrorClass: models.ErrorClassAuth, Error: strPtr("Unauthorized")},
		},
	}
}

func TestNewSheetsTrackerRequiresCredentials(t *testing.T) {
	_, err := NewSheetsTracker(context.Background(), config.TrackerConfig{SpreadsheetID: "x"}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	_, err = NewSheetsTracker(context.Background(), config.TrackerConfig{}, logger.Nop())
	assert.Error(t, err)
}

func TestInitializeSheetCreatesSheetAndHeaders(t *testing.T) {
	fake := &fakeSheets{}
	tr := newTracker(t, fake)

	require.NoError(t, tr.InitializeSheet(context.Background()))
	assert.Equal(t, []string{"get", "add-sheet", "read-headers", "write-headers"}, fake.calls)
}

func TestInitializeSheetExisting(t *testing.T) {
	fake := &fakeSheets{hasSheet: true}
	tr := newTracker(t, fake)

	require.NoError(t, tr.InitializeSheet(context.Background()))
	assert.Equal(t, []string{"get", "read-headers", "write-headers"}, fake.calls)
}

func TestSaveAppendsOneRowPerAttempt(t *testing.T) {
	fake := &fakeSheets{}
	tr := newTracker(t, fake)

	require.NoError(t, tr.Save(context.Background(), record()))

	require.Len(t, fake.appended, 2)
	assert.Equal(t, "2024-03-09T08:30:00Z", fake.appended[0][0])
	assert.EqualValues(t, 1, fake.appended[0][1])
	assert.Equal(t, "success", fake.appended[0][2])
	assert.Equal(t, "1799", fake.appended[0][3])
	assert.Equal(t, "simulated", fake.appended[1][2])
	assert.Equal(t, "auth", fake.appended[1][4])
	assert.Equal(t, "Unauthorized", fake.appended[1][5])
}

func TestSaveSkipsEmptyRecord(t *testing.T) {
	fake := &fakeSheets{}
	tr := newTracker(t, fake)

	require.NoError(t, tr.Save(context.Background(), models.HistoryRecord{Text: "x"}))
	assert.Empty(t, fake.calls)
}

func TestRowsTruncatesPreview(t *testing.T) {
	rec := record()
	rec.Text = strings.Repeat("é", 250)

	rows := Rows(rec)
	require.Len(t, rows, 2)
	preview := rows[0][7].(string)
	assert.Equal(t, previewLength+3, len([]rune(preview)))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Len(t, rows[0], len(SheetColumns))
}
