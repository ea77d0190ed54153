package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/social-autoposter/internal/content"
	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/internal/social"
	"github.com/social-autoposter/pkg/logger"
)

// scriptedPoster returns the queued errors in order, then succeeds
type scriptedPoster struct {
	errs  []error
	texts []string
}

func (p *scriptedPoster) Name() string { return "scripted" }

func (p *scriptedPoster) Post(_ context.Context, text string, _ models.Credentials) (string, error) {
	p.texts = append(p.texts, text)
	if n := len(p.texts); n <= len(p.errs) && p.errs[n-1] != nil {
		return "", p.errs[n-1]
	}
	return "post-id", nil
}

// alwaysFail returns the same error on every call
type alwaysFail struct {
	err   error
	calls int
}

func (p *alwaysFail) Name() string { return "fail" }

func (p *alwaysFail) Post(context.Context, string, models.Credentials) (string, error) {
	p.calls++
	return "", p.err
}

type sleepRecorder struct {
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func perr(class models.ErrorClass) error {
	return &social.ProviderError{Class: class, Message: string(class)}
}

var fixedNow = time.Date(2026, 10, 18, 14, 5, 9, 0, time.UTC)

func newEngine(p social.Poster, s *sleepRecorder) *Engine {
	return NewEngine(p, DefaultConfig(), logger.Nop(),
		WithSleep(s.sleep),
		WithClock(func() time.Time { return fixedNow }))
}

var account = models.Account{ID: 1}

func TestDeliverOneSuccess(t *testing.T) {
	s := &sleepRecorder{}
	got := newEngine(&scriptedPoster{}, s).DeliverOne(context.Background(), "hi", account, 3)

	assert.Equal(t, models.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "post-id", got.ProviderID)
	assert.Equal(t, 1, got.Calls)
	assert.Empty(t, s.waits)
	assert.Equal(t, fixedNow, got.Timestamp)
}

func TestDeliverOneRateLimitedThenSuccess(t *testing.T) {
	p := &scriptedPoster{errs: []error{perr(models.ErrorClassRateLimited), perr(models.ErrorClassRateLimited)}}
	s := &sleepRecorder{}
	got := newEngine(p, s).DeliverOne(context.Background(), "hi", account, 3)

	assert.Equal(t, models.OutcomeSuccess, got.Outcome)
	assert.Equal(t, 3, got.Calls)
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, s.waits)
	assert.Equal(t, []string{"hi", "hi", "hi"}, p.texts)
}

func TestDeliverOneDuplicateMutatesText(t *testing.T) {
	p := &scriptedPoster{errs: []error{perr(models.ErrorClassDuplicate), perr(models.ErrorClassDuplicate)}}
	s := &sleepRecorder{}
	got := newEngine(p, s).DeliverOne(context.Background(), "hi #go", account, 3)

	require.Equal(t, models.OutcomeSuccess, got.Outcome)
	assert.Equal(t, []string{"hi #go", "hi #go 14:05:09", "hi #go 14:05:09"}, p.texts)
	assert.Equal(t, "hi #go 14:05:09", got.Text)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, s.waits)
}

func TestDeliverOneDuplicateKeepsTagsLast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tags = "#WebDev #100DaysOfCode"
	p := &scriptedPoster{errs: []error{perr(models.ErrorClassDuplicate)}}
	e := NewEngine(p, cfg, logger.Nop(),
		WithSleep((&sleepRecorder{}).sleep),
		WithClock(func() time.Time { return fixedNow }))

	got := e.DeliverOne(context.Background(), "Ship small PRs. #WebDev #100DaysOfCode", account, 3)

	require.Equal(t, models.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "Ship small PRs. 14:05:09 #WebDev #100DaysOfCode", p.texts[1])
}

func TestDeliverOneDuplicateAtLengthLimitStaysWithinLimit(t *testing.T) {
	const tags = "#WebDev #100DaysOfCode"
	cfg := DefaultConfig()
	cfg.Tags = tags
	full := content.Finalize(strings.Repeat("a", 400), tags, 280)
	require.Equal(t, 280, utf8.RuneCountInString(full))

	p := &scriptedPoster{errs: []error{perr(models.ErrorClassDuplicate), perr(models.ErrorClassDuplicate)}}
	e := NewEngine(p, cfg, logger.Nop(),
		WithSleep((&sleepRecorder{}).sleep),
		WithClock(func() time.Time { return fixedNow }))

	got := e.DeliverOne(context.Background(), full, account, 3)

	require.Equal(t, models.OutcomeSuccess, got.Outcome)
	require.Len(t, p.texts, 3)
	for _, text := range p.texts[1:] {
		assert.Equal(t, 280, utf8.RuneCountInString(text))
		assert.True(t, strings.HasSuffix(text, " 14:05:09 "+tags), text)
		assert.Equal(t, 1, strings.Count(text, "#WebDev"))
		assert.Equal(t, 1, strings.Count(text, "..."))
	}
	assert.Equal(t, p.texts[1], p.texts[2])
}

func TestDeliverOnePermanentErrorsAreNotRetried(t *testing.T) {
	for _, class := range []models.ErrorClass{
		models.ErrorClassAuth,
		models.ErrorClassForbidden,
		models.ErrorClassBadRequest,
		models.ErrorClassUnavailable,
		models.ErrorClassOther,
	} {
		p := &alwaysFail{err: perr(class)}
		s := &sleepRecorder{}
		got := newEngine(p, s).DeliverOne(context.Background(), "hi", account, 3)

		assert.Equal(t, models.OutcomeSimulated, got.Outcome, class)
		assert.Equal(t, class, got.ErrorClass)
		assert.Equal(t, 1, p.calls, class)
		assert.Empty(t, s.waits, class)
		assert.True(t, strings.HasPrefix(got.ProviderID, "sim-"), got.ProviderID)
		assert.NotEmpty(t, got.Error)
	}
}

func TestDeliverOneRetryBound(t *testing.T) {
	for retries := 0; retries <= 4; retries++ {
		for _, class := range []models.ErrorClass{models.ErrorClassRateLimited, models.ErrorClassDuplicate} {
			p := &alwaysFail{err: perr(class)}
			s := &sleepRecorder{}
			got := newEngine(p, s).DeliverOne(context.Background(), "hi", account, retries)

			assert.Equal(t, retries+1, p.calls)
			assert.Equal(t, retries+1, got.Calls)
			assert.Len(t, s.waits, retries)
			assert.Equal(t, models.OutcomeSimulated, got.Outcome)
		}
	}
}

func TestDeliverOneUnclassifiedErrorIsSimulated(t *testing.T) {
	p := &alwaysFail{err: errors.New("connection reset")}
	got := newEngine(p, &sleepRecorder{}).DeliverOne(context.Background(), "hi", account, 3)
	assert.Equal(t, models.OutcomeSimulated, got.Outcome)
	assert.Equal(t, models.ErrorClassOther, got.ErrorClass)
	assert.Equal(t, 1, p.calls)
}

func TestDeliverOneCanceledDuringBackoffIsFailed(t *testing.T) {
	p := &alwaysFail{err: perr(models.ErrorClassRateLimited)}
	s := &sleepRecorder{err: context.Canceled}
	got := newEngine(p, s).DeliverOne(context.Background(), "hi", account, 3)

	assert.Equal(t, models.OutcomeFailed, got.Outcome)
	assert.Equal(t, 1, p.calls)
	assert.NotEmpty(t, got.ProviderID)
}

func TestDeliverAllPacesAccountsAndContinues(t *testing.T) {
	p := &alwaysFail{err: perr(models.ErrorClassForbidden)}
	s := &sleepRecorder{}
	accounts := []models.Account{{ID: 1}, {ID: 2}, {ID: 3}}

	got := newEngine(p, s).DeliverAll(context.Background(), "hi", accounts)

	require.Len(t, got, 3)
	for i, a := range got {
		assert.Equal(t, i+1, a.Account.ID)
		assert.Equal(t, models.OutcomeSimulated, a.Outcome)
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, s.waits)
	assert.Equal(t, Summary{Simulated: 3}, Summarize(got))
}

func TestDeliverAllSingleAccountHasNoDelay(t *testing.T) {
	s := &sleepRecorder{}
	got := newEngine(&scriptedPoster{}, s).DeliverAll(context.Background(), "hi", []models.Account{{ID: 1}})
	require.Len(t, got, 1)
	assert.Empty(t, s.waits)
}

func TestDeliverAllStopsWhenCanceled(t *testing.T) {
	s := &sleepRecorder{err: context.Canceled}
	got := newEngine(&scriptedPoster{}, s).DeliverAll(context.Background(), "hi", []models.Account{{ID: 1}, {ID: 2}})
	assert.Len(t, got, 1)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestSummarize(t *testing.T) {
	got := Summarize([]models.DeliveryAttempt{
		{Outcome: models.OutcomeSuccess},
		{Outcome: models.OutcomeSimulated},
		{Outcome: models.OutcomeFailed},
		{Outcome: models.OutcomeSuccess},
	})
	assert.Equal(t, Summary{Success: 2, Simulated: 1, Failed: 1}, got)
}
