package models

import "time"

// AttemptSummary is the persisted form of a DeliveryAttempt
type AttemptSummary struct {
	Account    int        `json:"account"`
	Success    bool       `json:"success"`
	Simulated  bool       `json:"simulated"`
	Outcome    Outcome    `json:"outcome"`
	ID         *string    `json:"id"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
	Error      *string    `json:"error"`
}

// HistoryRecord is one cycle in the persisted history log
type HistoryRecord struct {
	Timestamp time.Time        `json:"timestamp"`
	Text      string           `json:"text"`
	Origin    Origin           `json:"origin,omitempty"`
	Results   []AttemptSummary `json:"results"`
}

// Summarize converts delivery attempts into their persisted form
func Summarize(attempts []DeliveryAttempt) []AttemptSummary {
	out := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		s := AttemptSummary{
			Account:    a.Account.ID,
			Success:    a.Outcome == OutcomeSuccess,
			Simulated:  a.Outcome == OutcomeSimulated,
			Outcome:    a.Outcome,
			ErrorClass: a.ErrorClass,
		}
		if a.ProviderID != "" {
			id := a.ProviderID
			s.ID = &id
		}
		if a.Error != "" {
			msg := a.Error
			s.Error = &msg
		}
		out = append(out, s)
	}
	return out
}
