package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeFlagsFollowOutcome(t *testing.T) {
	got := Summarize([]DeliveryAttempt{
		{Account: Account{ID: 1}, Outcome: OutcomeSuccess, ProviderID: "111"},
		{Account: Account{ID: 2}, Outcome: OutcomeSimulated, ProviderID: "sim-a", ErrorClass: ErrorClassAuth, Error: "unauthorized"},
		{Account: Account{ID: 3}, Outcome: OutcomeFailed, ProviderID: "sim-b", ErrorClass: ErrorClassRateLimited, Error: "context canceled"},
	})
	require.Len(t, got, 3)

	tests := []struct {
		outcome   Outcome
		success   bool
		simulated bool
	}{
		{OutcomeSuccess, true, false},
		{OutcomeSimulated, false, true},
		{OutcomeFailed, false, false},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.outcome, got[i].Outcome)
		assert.Equal(t, tt.success, got[i].Success, tt.outcome)
		assert.Equal(t, tt.simulated, got[i].Simulated, tt.outcome)
	}

	assert.Nil(t, got[0].Error)
	require.NotNil(t, got[2].Error)
	assert.Equal(t, "context canceled", *got[2].Error)
}
