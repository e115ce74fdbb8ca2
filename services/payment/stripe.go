package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"workshophub/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/balance"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// checkoutSessionAPI is the slice of the Stripe checkout client we use.
type checkoutSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	Key          string
	SuccessURL   string // may contain {ORDER_ID}
	CancelURL    string
	ReadyTimeout time.Duration
	MaxRetries   int
	// SessionTTL is how long a checkout stays open. Stripe requires 30m to 24h.
	SessionTTL time.Duration
}

// StripeAdapter opens Stripe Checkout Sessions. The order id travels as the
// session's client_reference_id and metadata, and seeds the idempotency key.
type StripeAdapter struct {
	cfg      StripeConfig
	sessions checkoutSessionAPI
	tracker  SessionTracker
	ready    *Readiness
	backoff  func() backoff.BackOff
	now      func() time.Time
	logger   *zap.Logger

	// checkBalance is the readiness probe; reprobe spaces failed rounds.
	checkBalance func() error
	reprobe      time.Duration
}

// NewStripeAdapter wires the production Stripe clients. Call Probe once to
// resolve readiness.
func NewStripeAdapter(cfg StripeConfig, tracker SessionTracker, logger *zap.Logger) *StripeAdapter {
	backend := stripe.GetBackend(stripe.APIBackend)
	a := newStripeAdapter(cfg, &session.Client{B: backend, Key: cfg.Key}, tracker, NewReadiness(), logger)
	balances := &balance.Client{B: backend, Key: cfg.Key}
	a.checkBalance = func() error {
		_, err := balances.Get(&stripe.BalanceParams{})
		return err
	}
	return a
}

func newStripeAdapter(cfg StripeConfig, api checkoutSessionAPI, tracker SessionTracker, ready *Readiness, logger *zap.Logger) *StripeAdapter {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SessionTTL < 30*time.Minute {
		cfg.SessionTTL = 30 * time.Minute
	}
	return &StripeAdapter{
		cfg:      cfg,
		sessions: api,
		tracker:  tracker,
		ready:    ready,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		checkBalance: func() error { return nil },
		reprobe:      30 * time.Second,
		now:          time.Now,
		logger:       logger,
	}
}

func (a *StripeAdapter) Name() string { return "stripe" }

func (a *StripeAdapter) Ready() bool { return a.ready.Ready() }

// Probe validates the API key with a balance read in the background. Failed
// rounds are retried every reprobe interval until one succeeds or ctx ends.
func (a *StripeAdapter) Probe(ctx context.Context) {
	go a.probeUntilReady(ctx)
}

func (a *StripeAdapter) probeUntilReady(ctx context.Context) {
	for {
		_, err := withRetry(ctx, a.backoff(), a.cfg.MaxRetries, func() (struct{}, error) {
			return struct{}{}, a.checkBalance()
		})
		a.ready.Resolve(err)
		if err == nil {
			a.logger.Info("stripe gateway ready")
			return
		}
		a.logger.Error("stripe readiness probe failed", zap.Error(err), zap.Duration("retryIn", a.reprobe))

		timer := time.NewTimer(a.reprobe)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (a *StripeAdapter) CreateSession(ctx context.Context, req SessionRequest) (*models.SessionHandle, error) {
	if err := a.ready.Wait(ctx, a.cfg.ReadyTimeout); err != nil {
		return nil, err
	}

	attempt := 1
	prior, err := a.tracker.Get(ctx, req.OrderID)
	switch {
	case err == nil:
		cs, err := a.getSession(ctx, prior.SessionID)
		if err != nil {
			return nil, err
		}
		// An open or completed session is still the order's session.
		if cs.Status != stripe.CheckoutSessionStatusExpired {
			return prior, nil
		}
		attempt = prior.Attempt + 1
	case !errors.Is(err, ErrUnknownOrder):
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID),
		SuccessURL:        stripe.String(ReturnURL(a.cfg.SuccessURL, req.OrderID)),
		CancelURL:         stripe.String(ReturnURL(a.cfg.CancelURL, req.OrderID)),
		ExpiresAt:         stripe.Int64(a.now().Add(a.cfg.SessionTTL).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID)
	params.SetIdempotencyKey(fmt.Sprintf("%s-%d", req.OrderID, attempt))

	cs, err := withRetry(ctx, a.backoff(), a.cfg.MaxRetries, func() (*stripe.CheckoutSession, error) {
		return a.sessions.New(params)
	})
	if err != nil {
		return nil, err
	}

	handle := models.SessionHandle{
		OrderID:     req.OrderID,
		SessionID:   cs.ID,
		CheckoutURL: cs.URL,
		Attempt:     attempt,
	}
	if cs.ExpiresAt > 0 {
		handle.ExpiresAt = time.Unix(cs.ExpiresAt, 0)
	}
	if err := a.tracker.Put(ctx, handle); err != nil {
		return nil, err
	}
	a.logger.Info("opened checkout session",
		zap.String("orderId", req.OrderID),
		zap.String("sessionId", cs.ID),
		zap.Int("attempt", attempt))
	return &handle, nil
}

func (a *StripeAdapter) Verify(ctx context.Context, orderID string) (*VerifyResult, error) {
	if err := a.ready.Wait(ctx, a.cfg.ReadyTimeout); err != nil {
		return nil, err
	}
	handle, err := a.tracker.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	cs, err := a.getSession(ctx, handle.SessionID)
	if err != nil {
		return nil, err
	}
	// A session is only accepted for the order it was opened for.
	if cs.ClientReferenceID != "" && cs.ClientReferenceID != orderID {
		return nil, fmt.Errorf("%w: session %s belongs to another order", ErrGatewayRejected, cs.ID)
	}
	return sessionResult(orderID, cs), nil
}

func (a *StripeAdapter) getSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	return withRetry(ctx, a.backoff(), a.cfg.MaxRetries, func() (*stripe.CheckoutSession, error) {
		return a.sessions.Get(sessionID, params)
	})
}

func sessionResult(orderID string, cs *stripe.CheckoutSession) *VerifyResult {
	res := &VerifyResult{OrderID: orderID}
	switch {
	case cs.Status == stripe.CheckoutSessionStatusComplete &&
		(cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired):
		res.Status = StatusPaid
		res.TransactionID = cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			res.TransactionID = cs.PaymentIntent.ID
		}
	case cs.Status == stripe.CheckoutSessionStatusExpired:
		res.Status = StatusFailed
		res.Reason = "checkout session expired"
	case cs.PaymentIntent != nil && cs.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled:
		res.Status = StatusFailed
		res.Reason = "payment was cancelled"
	default:
		res.Status = StatusPending
	}
	return res
}

// withRetry runs op with exponential backoff, retrying network errors, 429s
// and 5xx responses up to maxTries times.
func withRetry[T any](ctx context.Context, b backoff.BackOff, maxTries int, op func() (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil {
			return v, classify(err)
		}
		return v, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(maxTries)))
	if err == nil {
		return res, nil
	}

	var zero T
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if errors.Is(err, ErrGatewayRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return zero, err
	}
	return zero, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}

func classify(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return err
	}
	status := serr.HTTPStatusCode
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError || status == 0 {
		return err
	}
	return backoff.Permanent(fmt.Errorf("%w: %s", ErrGatewayRejected, serr.Msg))
}
