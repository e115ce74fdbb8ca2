package booking

import (
	"fmt"

	"workshophub/models"
)

// Event drives the booking state machine.
type Event string

const (
	EventContactSubmitted Event = "contact_submitted"
	EventContactVerified  Event = "contact_verified"
	EventNoBatches        Event = "no_batches"
	EventBatchSelected    Event = "batch_selected"
	EventPaymentOpened    Event = "payment_opened"
	EventFreeCommitted    Event = "free_committed"
	EventProceed          Event = "proceed"
	EventGatewayReturn    Event = "gateway_return"
	EventPaymentPaid      Event = "payment_paid"
	EventPaymentFailed    Event = "payment_failed"
	EventGatewayError     Event = "gateway_error"
	EventTimedOut         Event = "timed_out"
	EventCapacityLost     Event = "capacity_lost"
	EventRetry            Event = "retry"
	EventCancel           Event = "cancel"
)

type transitionKey struct {
	from  models.AttemptState
	event Event
}

var transitions = map[transitionKey]models.AttemptState{
	{models.StateIdle, EventContactSubmitted}:      models.StateVerifying,
	{models.StateVerifying, EventContactSubmitted}: models.StateVerifying,
	{models.StateVerifying, EventContactVerified}:  models.StateBatchSelection,
	{models.StateVerifying, EventNoBatches}:        models.StateNoBatches,

	{models.StateBatchSelection, EventBatchSelected}: models.StateBatchSelection,
	{models.StateBatchSelection, EventPaymentOpened}: models.StatePaymentPending,
	{models.StateBatchSelection, EventFreeCommitted}: models.StateCommitted,
	{models.StateBatchSelection, EventGatewayError}:  models.StateFailed,
	// A free seat lost at commit leaves the attendee choosing again.
	{models.StateBatchSelection, EventCapacityLost}: models.StateBatchSelection,

	{models.StatePaymentPending, EventProceed}:       models.StateVerifyingPayment,
	{models.StatePaymentPending, EventGatewayReturn}: models.StateVerifyingPayment,
	{models.StatePaymentPending, EventTimedOut}:      models.StateFailed,
	{models.StatePaymentPending, EventGatewayError}:  models.StateFailed,

	// Re-entering verifying_payment re-runs verification after a Pending answer.
	{models.StateVerifyingPayment, EventProceed}:       models.StateVerifyingPayment,
	{models.StateVerifyingPayment, EventGatewayReturn}: models.StateVerifyingPayment,
	{models.StateVerifyingPayment, EventPaymentPaid}:   models.StateCommitted,
	{models.StateVerifyingPayment, EventPaymentFailed}: models.StateFailed,
	{models.StateVerifyingPayment, EventGatewayError}:  models.StateFailed,
	{models.StateVerifyingPayment, EventTimedOut}:      models.StateFailed,
	{models.StateVerifyingPayment, EventCapacityLost}:  models.StateFailed,

	{models.StateFailed, EventRetry}: models.StatePaymentPending,
	// A return for the same order resumes verification after a recoverable failure.
	{models.StateFailed, EventGatewayReturn}: models.StateVerifyingPayment,

	{models.StateIdle, EventCancel}:           models.StateCancelled,
	{models.StateVerifying, EventCancel}:      models.StateCancelled,
	{models.StateBatchSelection, EventCancel}: models.StateCancelled,
	{models.StateNoBatches, EventCancel}:      models.StateCancelled,
	{models.StatePaymentPending, EventCancel}: models.StateCancelled,
}

var failureReasons = map[Event]models.FailureReason{
	EventPaymentFailed: models.FailurePayment,
	EventGatewayError:  models.FailureGateway,
	EventTimedOut:      models.FailureTimeout,
	EventCapacityLost:  models.FailureCapacity,
}

// retryable lists the failure reasons a retry or gateway return may leave from.
var retryable = map[models.FailureReason]bool{
	models.FailurePayment: true,
	models.FailureGateway: true,
	models.FailureTimeout: true,
}

// Transition is the pure transition function. It returns the next state and
// its failure reason, or an error when the event is not accepted in from.
func Transition(from models.AttemptState, reason models.FailureReason, ev Event) (models.AttemptState, models.FailureReason, error) {
	next, ok := transitions[transitionKey{from, ev}]
	if !ok {
		return from, reason, fmt.Errorf("event %s not allowed in state %s", ev, from)
	}
	if from == models.StateFailed && !retryable[reason] {
		return from, reason, fmt.Errorf("failure %q cannot be retried", reason)
	}
	if next == models.StateFailed {
		return next, failureReasons[ev], nil
	}
	return next, models.FailureNone, nil
}

// Accepts reports whether ev is valid in from, ignoring retry guards.
func Accepts(from models.AttemptState, ev Event) bool {
	_, ok := transitions[transitionKey{from, ev}]
	return ok
}
