package entity

import "fmt"

// Error taxonomy for the entitlement engine. QuotaExceeded is intentionally
// absent: a denied consume is a Decision value, not an error.

// AuthenticationError: webhook signature did not verify. Rejected with no
// state change; the ingestor tracks the failure rate for alerting.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// ValidationError: payload parsed but is structurally unusable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s: %s", e.Field, e.Reason)
}

// TransientStorageError: the datastore failed mid-operation. The ledger row
// stays pending and provider redelivery is the retry mechanism.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage error during %s: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// ConflictError: the legality table flagged a transition as anomalous.
// Logged and alerted, but the snapshot still wins; processing continues.
type ConflictError struct {
	AccountId string
	From      SubscriptionStatus
	To        SubscriptionStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("anomalous subscription transition %s -> %s for account %s", e.From, e.To, e.AccountId)
}
