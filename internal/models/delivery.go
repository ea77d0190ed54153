package models

import "time"

// Outcome is the result of delivering content to one account
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeSimulated Outcome = "simulated"
	OutcomeFailed    Outcome = "failed"
)

// ErrorClass is the normalized category of a posting provider failure
type ErrorClass string

const (
	ErrorClassNone        ErrorClass = ""
	ErrorClassAuth        ErrorClass = "auth"
	ErrorClassForbidden   ErrorClass = "forbidden"
	ErrorClassRateLimited ErrorClass = "rate_limited"
	ErrorClassBadRequest  ErrorClass = "bad_request"
	ErrorClassDuplicate   ErrorClass = "duplicate_content"
	ErrorClassUnavailable ErrorClass = "service_unavailable"
	ErrorClassOther       ErrorClass = "other"
)

// Retryable returns true for classes the delivery engine retries
func (c ErrorClass) Retryable() bool {
	return c == ErrorClassRateLimited || c == ErrorClassDuplicate
}

// DeliveryAttempt is the final result of posting to one account in one cycle
type DeliveryAttempt struct {
	Account    Account
	Text       string // text as last sent, including any duplicate suffix
	Outcome    Outcome
	ProviderID string
	ErrorClass ErrorClass
	Error      string
	Calls      int // provider calls issued
	Timestamp  time.Time
}

// Delivered returns true when the provider accepted the post
func (d DeliveryAttempt) Delivered() bool {
	return d.Outcome == OutcomeSuccess
}
