package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"workshophub/database"
	enrollmentRepo "workshophub/database/repository/enrollment"
	studentRepo "workshophub/database/repository/student"
	workshopRepo "workshophub/database/repository/workshop"
	"workshophub/models"
	"workshophub/services/enrollment"
	"workshophub/services/notification"
	"workshophub/services/payment"
	"workshophub/services/verification"

	"go.uber.org/zap"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type scheduled struct {
	orderID string
	attempt int
	at      time.Time
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduled
}

func (s *recordingScheduler) SchedulePaymentTimeout(_ context.Context, orderID string, attempt int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduled{orderID, attempt, at})
	return nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	committed  []string
	overbooked []string
	failed     []string
}

func (n *recordingNotifier) EnrollmentCommitted(_ context.Context, e models.EnrollmentEntry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed, e.OrderID)
	return nil
}

func (n *recordingNotifier) EnrollmentOverbooked(_ context.Context, ev notification.OverbookedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overbooked = append(n.overbooked, ev.OrderID)
	return nil
}

func (n *recordingNotifier) PaymentFailed(_ context.Context, ev notification.PaymentFailedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, ev.Reason)
	return nil
}

// stateRecorder remembers every state an attempt was saved in.
type stateRecorder struct {
	*MemoryAttemptStore
	mu     sync.Mutex
	states map[string][]models.AttemptState
}

func (s *stateRecorder) Save(ctx context.Context, a *models.BookingAttempt, ttl time.Duration) error {
	s.mu.Lock()
	s.states[a.ID] = append(s.states[a.ID], a.State)
	s.mu.Unlock()
	return s.MemoryAttemptStore.Save(ctx, a, ttl)
}

type fixture struct {
	o         *Orchestrator
	workshops workshopRepo.WorkshopRepository
	gateway   *payment.MockAdapter
	store     *stateRecorder
	scheduler *recordingScheduler
	notifier  *recordingNotifier
	clock     *clock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	workshops := workshopRepo.NewSQLiteWorkshopRepo(db)
	students := studentRepo.NewSQLiteStudentRepo(db)

	mustSave := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustSave(workshops.SaveWorkshop(ctx, models.Workshop{ID: "w1", Title: "Pottery", Price: 50000, Currency: "inr", TotalSessions: 4}))
	mustSave(workshops.SaveWorkshop(ctx, models.Workshop{ID: "wfree", Title: "Open studio", Price: 0, TotalSessions: 1}))
	mustSave(workshops.SaveWorkshop(ctx, models.Workshop{ID: "wempty", Title: "Glazing", Price: 20000}))
	mustSave(workshops.SaveBatch(ctx, models.Batch{ID: "b1", WorkshopID: "w1", Date: "15 March 2025", StartTime: "10:00", EndTime: "12:00", Slots: 2}))
	mustSave(workshops.SaveBatch(ctx, models.Batch{ID: "bfull", WorkshopID: "w1", Date: "2025-03-20", Slots: 20, Enrolled: 20}))
	mustSave(workshops.SaveBatch(ctx, models.Batch{ID: "bclosed", WorkshopID: "w1", Date: "2025-03-22", Slots: 5, Status: models.BatchStatusClosed}))
	mustSave(workshops.SaveBatch(ctx, models.Batch{ID: "btbd", WorkshopID: "w1", Date: "TBD", Slots: 5}))
	mustSave(workshops.SaveBatch(ctx, models.Batch{ID: "f1", WorkshopID: "wfree", Date: "2025-04-01", Slots: 1}))
	mustSave(students.Create(ctx, models.Student{ID: "s1", Name: "Asha", Email: "asha@example.com", Phone: "9876543210"}))
	mustSave(students.Create(ctx, models.Student{ID: "s2", Name: "Ravi", Email: "ravi@example.com", Phone: "9123456780"}))

	logger := zap.NewNop()
	notifier := &recordingNotifier{}
	gateway := payment.NewMockAdapter(payment.StatusPaid, "http://localhost/return?order_id={ORDER_ID}", nil)
	store := &stateRecorder{MemoryAttemptStore: NewMemoryAttemptStore(), states: make(map[string][]models.AttemptState)}
	scheduler := &recordingScheduler{}

	o := NewOrchestrator(Deps{
		Workshops: workshops,
		Gate:      verification.NewGate(students, logger),
		Payments:  gateway,
		Ledger:    enrollment.NewLedger(enrollmentRepo.NewSQLiteEnrollmentRepo(db), notifier, logger),
		Attempts:  store,
		Timeouts:  scheduler,
		Notifier:  notifier,
		Logger:    logger,
	}, cfg)
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	o.now = c.Now

	return &fixture{o: o, workshops: workshops, gateway: gateway, store: store, scheduler: scheduler, notifier: notifier, clock: c}
}

func defaultConfig() Config {
	return Config{PaymentWindow: 30 * time.Minute, AttemptTTL: time.Hour, MaxPaymentAttempts: 3}
}

// verified starts an attempt for workshopID and verifies student s1.
func (f *fixture) verified(t *testing.T, workshopID string) *models.BookingAttempt {
	t.Helper()
	res, err := f.o.StartVerification(context.Background(), StartRequest{WorkshopID: workshopID, Method: verification.MethodPhone, Value: "98765 43210"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Outcome != verification.Found {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	return res.Attempt
}

// pending drives an attempt on w1 to payment_pending for batchID.
func (f *fixture) pending(t *testing.T, batchID string) *PaymentStart {
	t.Helper()
	ctx := context.Background()
	a := f.verified(t, "w1")
	if _, err := f.o.SelectBatch(ctx, a.ID, batchID); err != nil {
		t.Fatalf("select: %v", err)
	}
	start, err := f.o.BeginPayment(ctx, a.ID)
	if err != nil {
		t.Fatalf("begin payment: %v", err)
	}
	return start
}

func (f *fixture) enrolled(t *testing.T, batchID string) int {
	t.Helper()
	b, err := f.workshops.GetBatch(context.Background(), batchID)
	if err != nil {
		t.Fatal(err)
	}
	return b.Enrolled
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := CodeOf(err); got != code {
		t.Fatalf("error code = %q (%v), want %q", got, err, code)
	}
}

func TestVerificationOutcomes(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	res, err := f.o.StartVerification(ctx, StartRequest{WorkshopID: "w1", Method: verification.MethodPhone, Value: "9999999999"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != verification.NotFound || res.Attempt.State != models.StateVerifying {
		t.Fatalf("not found: %+v", res)
	}

	res, err = f.o.StartVerification(ctx, StartRequest{AttemptID: res.Attempt.ID, Method: verification.MethodEmail, Value: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != verification.Invalid || res.Reason == "" {
		t.Fatalf("invalid: %+v", res)
	}

	res, err = f.o.StartVerification(ctx, StartRequest{AttemptID: res.Attempt.ID, Method: verification.MethodEmail, Value: "Asha@Example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != verification.Found || res.Attempt.State != models.StateBatchSelection {
		t.Fatalf("found: %+v", res)
	}
	if res.Attempt.Student == nil || res.Attempt.Student.ID != "s1" {
		t.Fatalf("student = %+v", res.Attempt.Student)
	}
	if res.Attempt.Amount != 50000 || res.Attempt.Currency != "inr" {
		t.Fatalf("amount = %d %s", res.Attempt.Amount, res.Attempt.Currency)
	}
}

func TestVerificationUnknownWorkshop(t *testing.T) {
	f := newFixture(t, defaultConfig())
	_, err := f.o.StartVerification(context.Background(), StartRequest{WorkshopID: "missing", Method: verification.MethodPhone, Value: "9876543210"})
	wantCode(t, err, CodeNotFound)
}

func TestNoBatches(t *testing.T) {
	f := newFixture(t, defaultConfig())
	a := f.verified(t, "wempty")
	if a.State != models.StateNoBatches {
		t.Fatalf("state = %s", a.State)
	}
	_, err := f.o.SelectBatch(context.Background(), a.ID, "b1")
	wantCode(t, err, CodeInvalidTransition)
	if err := f.o.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	days, err := f.o.ListSelectableDays(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	want := models.CalendarDay{Year: 2025, Month: time.March, Day: 15}
	if len(days) != 1 || days[0] != want {
		t.Fatalf("days = %v", days)
	}

	views, err := f.o.ListBatches(ctx, "w1", models.CalendarDay{Year: 2025, Month: time.March, Day: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || !views[0].Full || views[0].Selectable {
		t.Fatalf("full day = %+v", views)
	}

	views, err = f.o.ListBatches(ctx, "w1", models.CalendarDay{Year: 2030, Month: time.January, Day: 1})
	if err != nil || len(views) != 0 {
		t.Fatalf("outside range = %+v %v", views, err)
	}

	tbd, err := f.o.ListUnresolvedBatches(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tbd) != 1 || tbd[0].ID != "btbd" || !tbd[0].TBD || tbd[0].Date != "TBD" {
		t.Fatalf("tbd = %+v", tbd)
	}

	_, err = f.o.ListSelectableDays(ctx, "missing")
	wantCode(t, err, CodeNotFound)
}

// Scenario A: a full batch cannot be selected.
func TestSelectFullBatch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	a := f.verified(t, "w1")
	_, err := f.o.SelectBatch(context.Background(), a.ID, "bfull")
	wantCode(t, err, CodeCapacityExceeded)

	got, err := f.o.GetAttempt(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateBatchSelection || got.BatchID != "" {
		t.Fatalf("attempt = %+v", got)
	}
}

func TestSelectBatchRules(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.verified(t, "w1")

	tests := []struct {
		batchID string
		code    string
	}{
		{"bclosed", CodeInvalidInput},
		{"nope", CodeNotFound},
		{"f1", CodeNotFound}, // belongs to another workshop
		{"btbd", ""},
		{"b1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.batchID, func(t *testing.T) {
			res, err := f.o.SelectBatch(ctx, a.ID, tt.batchID)
			if tt.code != "" {
				wantCode(t, err, tt.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Attempt.BatchID != tt.batchID || res.Attempt.State != models.StateBatchSelection {
				t.Fatalf("attempt = %+v", res.Attempt)
			}
		})
	}
}

// Scenario D: a free workshop commits without entering payment_pending.
func TestFreeWorkshopCommitsDirectly(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.verified(t, "wfree")
	if _, err := f.o.SelectBatch(ctx, a.ID, "f1"); err != nil {
		t.Fatal(err)
	}
	start, err := f.o.BeginPayment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !start.Free || start.Session != nil || start.Entry == nil {
		t.Fatalf("start = %+v", start)
	}
	if start.Attempt.State != models.StateCommitted || start.Attempt.OrderID == "" {
		t.Fatalf("attempt = %+v", start.Attempt)
	}
	if start.Entry.PaymentStatus != models.EnrollmentFree {
		t.Fatalf("payment status = %s", start.Entry.PaymentStatus)
	}
	for _, s := range f.store.states[a.ID] {
		if s == models.StatePaymentPending || s == models.StateVerifyingPayment {
			t.Fatalf("free flow passed through %s", s)
		}
	}
	if len(f.scheduler.calls) != 0 {
		t.Fatalf("timeouts scheduled for a free booking: %v", f.scheduler.calls)
	}
	if n := f.enrolled(t, "f1"); n != 1 {
		t.Fatalf("enrolled = %d", n)
	}
}

func TestFreeWorkshopLosesLastSeat(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	first := f.verified(t, "wfree")
	second := f.verified(t, "wfree")
	for _, a := range []*models.BookingAttempt{first, second} {
		if _, err := f.o.SelectBatch(ctx, a.ID, "f1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.o.BeginPayment(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.BeginPayment(ctx, second.ID)
	wantCode(t, err, CodeCapacityExceeded)

	got, _ := f.o.GetAttempt(ctx, second.ID)
	if got.State != models.StateBatchSelection {
		t.Fatalf("state = %s", got.State)
	}
}

func TestPaidFlowCommits(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	start := f.pending(t, "b1")

	a := start.Attempt
	if a.State != models.StatePaymentPending || a.OrderID == "" || start.Session == nil {
		t.Fatalf("start = %+v", start)
	}
	if want := f.clock.Now().Add(30 * time.Minute); !a.PaymentDeadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", a.PaymentDeadline, want)
	}
	if len(f.scheduler.calls) != 1 || f.scheduler.calls[0].orderID != a.OrderID || !f.scheduler.calls[0].at.Equal(a.PaymentDeadline) {
		t.Fatalf("scheduled = %+v", f.scheduler.calls)
	}

	res, err := f.o.Proceed(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != payment.StatusPaid || res.Entry == nil || res.Attempt.State != models.StateCommitted {
		t.Fatalf("result = %+v", res)
	}
	if res.Entry.TransactionID == "" || res.Attempt.TransactionID != res.Entry.TransactionID {
		t.Fatalf("transaction = %q / %q", res.Entry.TransactionID, res.Attempt.TransactionID)
	}
	if len(f.notifier.committed) != 1 {
		t.Fatalf("committed events = %v", f.notifier.committed)
	}
}

// Scenario E: a repeated gateway return is idempotent.
func TestGatewayReturnTwice(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	orderID := f.pending(t, "b1").Attempt.OrderID

	first, err := f.o.HandleGatewayReturn(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.o.HandleGatewayReturn(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Entry.OrderID != second.Entry.OrderID || first.Entry.TransactionID != second.Entry.TransactionID {
		t.Fatalf("results differ: %+v vs %+v", first.Entry, second.Entry)
	}
	if !second.Duplicate || second.Status != payment.StatusPaid {
		t.Fatalf("second = %+v", second)
	}
	if n := f.enrolled(t, "b1"); n != 1 {
		t.Fatalf("enrolled = %d, want 1", n)
	}
}

func TestConcurrentReturnsCommitOnce(t *testing.T) {
	f := newFixture(t, defaultConfig())
	orderID := f.pending(t, "b1").Attempt.OrderID

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.o.HandleGatewayReturn(context.Background(), orderID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("return: %v", err)
	}
	if n := f.enrolled(t, "b1"); n != 1 {
		t.Fatalf("enrolled = %d, want 1", n)
	}
	if len(f.notifier.committed) != 1 {
		t.Fatalf("committed events = %v", f.notifier.committed)
	}
}

func TestGatewayReturnForUnknownOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())
	_, err := f.o.HandleGatewayReturn(context.Background(), "order_unknown")
	wantCode(t, err, CodeNotFound)
	_, err = f.o.HandleGatewayReturn(context.Background(), "")
	wantCode(t, err, CodeInvalidInput)
}

func TestDeclinedPaymentRetriesSameOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	start := f.pending(t, "b1")
	a := start.Attempt
	f.gateway.SetOutcome(a.OrderID, payment.StatusFailed)

	_, err := f.o.Proceed(ctx, a.ID)
	wantCode(t, err, CodePaymentDeclined)
	got, _ := f.o.GetAttempt(ctx, a.ID)
	if got.State != models.StateFailed || got.FailureReason != models.FailurePayment {
		t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
	}
	if len(f.notifier.failed) != 1 || f.notifier.failed[0] != "payment" {
		t.Fatalf("failure events = %v", f.notifier.failed)
	}

	retry, err := f.o.RetryPayment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retry.Attempt.OrderID != a.OrderID {
		t.Fatalf("retry minted a new order id: %s vs %s", retry.Attempt.OrderID, a.OrderID)
	}
	if retry.Attempt.State != models.StatePaymentPending || retry.Session.Attempt != 2 || retry.Attempt.PaymentAttempts != 2 {
		t.Fatalf("retry = %+v", retry)
	}

	res, err := f.o.HandleGatewayReturn(ctx, a.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempt.State != models.StateCommitted || res.Entry.OrderID != a.OrderID {
		t.Fatalf("result = %+v", res)
	}
}

func TestRetryLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxPaymentAttempts = 1
	f := newFixture(t, cfg)
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.SetOutcome(a.OrderID, payment.StatusFailed)
	if _, err := f.o.Proceed(ctx, a.ID); err == nil {
		t.Fatal("expected decline")
	}
	_, err := f.o.RetryPayment(ctx, a.ID)
	wantCode(t, err, CodeInvalidTransition)
}

func TestPendingKeepsVerifying(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.SetOutcome(a.OrderID, payment.StatusPending)

	for i := 0; i < 2; i++ {
		res, err := f.o.Proceed(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != payment.StatusPending || res.Attempt.State != models.StateVerifyingPayment {
			t.Fatalf("result = %+v", res)
		}
	}
	_, err := f.o.BeginPayment(ctx, a.ID)
	wantCode(t, err, CodeInvalidTransition)
	err = f.o.Cancel(ctx, a.ID)
	wantCode(t, err, CodeInvalidTransition)
}

func TestDeadlineOnReadTimesOut(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.SetOutcome(a.OrderID, payment.StatusPending)

	f.clock.Advance(31 * time.Minute)
	got, err := f.o.GetAttempt(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateFailed || got.FailureReason != models.FailureTimeout {
		t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
	}

	f.gateway.SetOutcome(a.OrderID, payment.StatusPaid)
	retry, err := f.o.RetryPayment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retry.Attempt.OrderID != a.OrderID || !retry.Attempt.PaymentDeadline.Equal(f.clock.Now().Add(30*time.Minute)) {
		t.Fatalf("retry = %+v", retry.Attempt)
	}
	if len(f.scheduler.calls) != 2 || f.scheduler.calls[1].attempt != 2 {
		t.Fatalf("scheduled = %+v", f.scheduler.calls)
	}
}

func TestExpirePayment(t *testing.T) {
	t.Run("before deadline", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		a := f.pending(t, "b1").Attempt
		if err := f.o.ExpirePayment(context.Background(), a.OrderID); err != nil {
			t.Fatal(err)
		}
		got, _ := f.o.GetAttempt(context.Background(), a.ID)
		if got.State != models.StatePaymentPending {
			t.Fatalf("state = %s", got.State)
		}
	})

	t.Run("paid at the last check", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		a := f.pending(t, "b1").Attempt
		f.clock.Advance(time.Hour)
		if err := f.o.ExpirePayment(context.Background(), a.OrderID); err != nil {
			t.Fatal(err)
		}
		got, _ := f.o.GetAttempt(context.Background(), a.ID)
		if got.State != models.StateCommitted {
			t.Fatalf("state = %s", got.State)
		}
	})

	t.Run("unpaid", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		a := f.pending(t, "b1").Attempt
		f.gateway.SetOutcome(a.OrderID, payment.StatusPending)
		f.clock.Advance(time.Hour)
		if err := f.o.ExpirePayment(context.Background(), a.OrderID); err != nil {
			t.Fatal(err)
		}
		got, _ := f.o.GetAttempt(context.Background(), a.ID)
		if got.State != models.StateFailed || got.FailureReason != models.FailureTimeout {
			t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		if err := f.o.ExpirePayment(context.Background(), "order_gone"); err != nil {
			t.Fatal(err)
		}
	})
}

func TestCapacityLostAtCommit(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	if err := f.workshops.SaveBatch(ctx, models.Batch{ID: "b1", WorkshopID: "w1", Date: "2025-03-15", Slots: 1}); err != nil {
		t.Fatal(err)
	}
	first := f.pending(t, "b1").Attempt
	second := f.pending(t, "b1").Attempt

	if _, err := f.o.Proceed(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.Proceed(ctx, second.ID)
	wantCode(t, err, CodeCapacityExceeded)

	got, _ := f.o.GetAttempt(ctx, second.ID)
	if got.State != models.StateFailed || got.FailureReason != models.FailureCapacity {
		t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
	}
	if len(f.notifier.overbooked) != 1 || f.notifier.overbooked[0] != second.OrderID {
		t.Fatalf("overbooked = %v", f.notifier.overbooked)
	}
	if n := f.enrolled(t, "b1"); n != 1 {
		t.Fatalf("enrolled = %d", n)
	}
	_, err = f.o.RetryPayment(ctx, second.ID)
	wantCode(t, err, CodeInvalidTransition)
}

func TestBeginPaymentRechecksSeats(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.verified(t, "w1")
	if _, err := f.o.SelectBatch(ctx, a.ID, "b1"); err != nil {
		t.Fatal(err)
	}
	if err := f.workshops.SaveBatch(ctx, models.Batch{ID: "b1", WorkshopID: "w1", Date: "2025-03-15", Slots: 2, Enrolled: 2}); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.BeginPayment(ctx, a.ID)
	wantCode(t, err, CodeCapacityExceeded)
	got, _ := f.o.GetAttempt(ctx, a.ID)
	if got.State != models.StateBatchSelection || got.OrderID != "" {
		t.Fatalf("attempt = %+v", got)
	}
}

func TestBeginPaymentWithoutBatch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	a := f.verified(t, "w1")
	_, err := f.o.BeginPayment(context.Background(), a.ID)
	wantCode(t, err, CodeInvalidInput)
}

func TestGatewayFailureOnCreate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unavailable", payment.ErrGatewayUnavailable, CodeGatewayUnavailable},
		{"not ready", payment.ErrTimeout, CodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			ctx := context.Background()
			a := f.verified(t, "w1")
			if _, err := f.o.SelectBatch(ctx, a.ID, "b1"); err != nil {
				t.Fatal(err)
			}
			f.gateway.FailNextCreate(tt.err)
			_, err := f.o.BeginPayment(ctx, a.ID)
			wantCode(t, err, tt.code)

			got, _ := f.o.GetAttempt(ctx, a.ID)
			if got.State != models.StateFailed || got.FailureReason != models.FailureGateway {
				t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
			}

			retry, err := f.o.RetryPayment(ctx, a.ID)
			if err != nil {
				t.Fatal(err)
			}
			if retry.Attempt.State != models.StatePaymentPending || retry.Attempt.OrderID != got.OrderID {
				t.Fatalf("retry = %+v", retry.Attempt)
			}
		})
	}
}

func TestVerifyErrorFailsGateway(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.FailNextVerify(payment.ErrGatewayUnavailable)
	_, err := f.o.Proceed(ctx, a.ID)
	wantCode(t, err, CodeGatewayUnavailable)
	got, _ := f.o.GetAttempt(ctx, a.ID)
	if got.State != models.StateFailed || got.FailureReason != models.FailureGateway {
		t.Fatalf("attempt = %s/%s", got.State, got.FailureReason)
	}
}

// A payment completed while verification was failing is still committed
// when the gateway reports the order again.
func TestGatewayReturnAfterVerifyError(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.FailNextVerify(payment.ErrGatewayUnavailable)
	_, err := f.o.Proceed(ctx, a.ID)
	wantCode(t, err, CodeGatewayUnavailable)

	res, err := f.o.HandleGatewayReturn(ctx, a.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != payment.StatusPaid || res.Attempt.State != models.StateCommitted || res.Entry.OrderID != a.OrderID {
		t.Fatalf("result = %+v", res)
	}
	if n := f.enrolled(t, "b1"); n != 1 {
		t.Fatalf("enrolled = %d, want 1", n)
	}
}

func TestGatewayReturnAfterTimeout(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.SetOutcome(a.OrderID, payment.StatusPending)
	f.clock.Advance(time.Hour)
	if err := f.o.ExpirePayment(ctx, a.OrderID); err != nil {
		t.Fatal(err)
	}

	// Still unpaid: the attempt stays timed out.
	_, err := f.o.HandleGatewayReturn(ctx, a.OrderID)
	wantCode(t, err, CodeTimeout)

	f.gateway.SetOutcome(a.OrderID, payment.StatusPaid)
	res, err := f.o.HandleGatewayReturn(ctx, a.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempt.State != models.StateCommitted || f.enrolled(t, "b1") != 1 {
		t.Fatalf("attempt = %s enrolled = %d", res.Attempt.State, f.enrolled(t, "b1"))
	}
}

func TestExpireAfterVerifyError(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	a := f.pending(t, "b1").Attempt
	f.gateway.FailNextVerify(payment.ErrGatewayUnavailable)
	_, err := f.o.Proceed(ctx, a.ID)
	wantCode(t, err, CodeGatewayUnavailable)

	f.clock.Advance(time.Hour)
	if err := f.o.ExpirePayment(ctx, a.OrderID); err != nil {
		t.Fatal(err)
	}
	got, err := f.o.GetAttempt(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateCommitted || f.enrolled(t, "b1") != 1 {
		t.Fatalf("attempt = %s/%s enrolled = %d", got.State, got.FailureReason, f.enrolled(t, "b1"))
	}
}

func TestGatewayReturnAfterCapacityLost(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	if err := f.workshops.SaveBatch(ctx, models.Batch{ID: "b1", WorkshopID: "w1", Date: "2025-03-15", Slots: 1}); err != nil {
		t.Fatal(err)
	}
	first := f.pending(t, "b1").Attempt
	second := f.pending(t, "b1").Attempt
	if _, err := f.o.Proceed(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.Proceed(ctx, second.ID)
	wantCode(t, err, CodeCapacityExceeded)

	_, err = f.o.HandleGatewayReturn(ctx, second.OrderID)
	wantCode(t, err, CodeInvalidTransition)
	if len(f.notifier.overbooked) != 1 {
		t.Fatalf("overbooked = %v", f.notifier.overbooked)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	a := f.verified(t, "w1")
	if _, err := f.o.SelectBatch(ctx, a.ID, "b1"); err != nil {
		t.Fatal(err)
	}
	if err := f.o.Cancel(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.GetAttempt(ctx, a.ID)
	wantCode(t, err, CodeNotFound)

	pending := f.pending(t, "b1").Attempt
	if err := f.o.Cancel(ctx, pending.ID); err != nil {
		t.Fatalf("cancel from payment_pending: %v", err)
	}
	if n := f.enrolled(t, "b1"); n != 0 {
		t.Fatalf("cancel touched capacity: %d", n)
	}

	committed := f.pending(t, "b1").Attempt
	if _, err := f.o.Proceed(ctx, committed.ID); err != nil {
		t.Fatal(err)
	}
	wantCode(t, f.o.Cancel(ctx, committed.ID), CodeInvalidTransition)
}
