package payment

import (
	"context"
	"fmt"
	"sync"

	"workshophub/models"

	"github.com/google/uuid"
)

// MockAdapter settles payments in process. It backs demo mode and the
// synchronous "proceed" path; every order resolves to the configured outcome
// unless overridden with SetOutcome.
type MockAdapter struct {
	mu         sync.Mutex
	outcome    Status
	returnURL  string
	tracker    SessionTracker
	overrides  map[string]Status
	createErrs []error
	verifyErrs []error
}

func NewMockAdapter(outcome Status, returnURL string, tracker SessionTracker) *MockAdapter {
	if outcome == "" {
		outcome = StatusPaid
	}
	if tracker == nil {
		tracker = NewMemorySessionTracker()
	}
	return &MockAdapter{
		outcome:   outcome,
		returnURL: returnURL,
		tracker:   tracker,
		overrides: make(map[string]Status),
	}
}

func (m *MockAdapter) Name() string { return "mock" }

func (m *MockAdapter) Ready() bool { return true }

// SetOutcome fixes the status Verify reports for one order.
func (m *MockAdapter) SetOutcome(orderID string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[orderID] = status
}

// FailNextCreate queues an error for the next CreateSession call.
func (m *MockAdapter) FailNextCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErrs = append(m.createErrs, err)
}

// FailNextVerify queues an error for the next Verify call.
func (m *MockAdapter) FailNextVerify(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyErrs = append(m.verifyErrs, err)
}

func (m *MockAdapter) CreateSession(ctx context.Context, req SessionRequest) (*models.SessionHandle, error) {
	if err := m.popErr(&m.createErrs); err != nil {
		return nil, err
	}

	attempt := 1
	if prior, err := m.tracker.Get(ctx, req.OrderID); err == nil {
		if m.statusFor(req.OrderID) != StatusFailed {
			return prior, nil
		}
		attempt = prior.Attempt + 1
		// A replacement session starts undecided.
		m.mu.Lock()
		delete(m.overrides, req.OrderID)
		m.mu.Unlock()
	}

	handle := models.SessionHandle{
		OrderID:     req.OrderID,
		SessionID:   fmt.Sprintf("mock_%s", uuid.New().String()),
		CheckoutURL: ReturnURL(m.returnURL, req.OrderID),
		Attempt:     attempt,
	}
	if err := m.tracker.Put(ctx, handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (m *MockAdapter) Verify(ctx context.Context, orderID string) (*VerifyResult, error) {
	if err := m.popErr(&m.verifyErrs); err != nil {
		return nil, err
	}
	handle, err := m.tracker.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{OrderID: orderID, Status: m.statusFor(orderID)}
	switch res.Status {
	case StatusPaid:
		res.TransactionID = "txn_" + handle.SessionID
	case StatusFailed:
		res.Reason = "payment declined"
	}
	return res, nil
}

func (m *MockAdapter) statusFor(orderID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.overrides[orderID]; ok {
		return s
	}
	return m.outcome
}

func (m *MockAdapter) popErr(queue *[]error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}
