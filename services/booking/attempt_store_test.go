package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"workshophub/models"
)

func TestMemoryAttemptStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAttemptStore()

	if _, err := s.Get(ctx, "a1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	a := &models.BookingAttempt{ID: "a1", State: models.StateVerifying, Student: &models.Student{ID: "s1"}}
	if err := s.Save(ctx, a, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	got.Student.ID = "changed"
	again, _ := s.Get(ctx, "a1")
	if again.Student.ID != "s1" {
		t.Fatal("Get must return a copy")
	}

	if err := s.BindOrder(ctx, "order_1", "a1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if id, err := s.AttemptForOrder(ctx, "order_1"); err != nil || id != "a1" {
		t.Fatalf("order index = %q %v", id, err)
	}

	if err := s.Delete(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "a1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}

func TestMemoryAttemptStoreExpires(t *testing.T) {
	s := NewMemoryAttemptStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()
	if err := s.Save(ctx, &models.BookingAttempt{ID: "a1"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "a1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expired attempt: %v", err)
	}
}

func TestMemoryLockSerializes(t *testing.T) {
	s := NewMemoryAttemptStore()
	ctx := context.Background()

	unlock, err := s.Lock(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		unlock2, err := s.Lock(ctx, "a1")
		if err == nil {
			close(acquired)
			unlock2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder got the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	// Other attempts are independent.
	unlockOther, err := s.Lock(ctx, "a2")
	if err != nil {
		t.Fatal(err)
	}
	unlockOther()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
}

func TestMemoryLockHonoursContext(t *testing.T) {
	s := NewMemoryAttemptStore()
	unlock, _ := s.Lock(context.Background(), "a1")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Lock(ctx, "a1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestBookingErrorCodes(t *testing.T) {
	err := errAttempt(ErrAttemptNotFound)
	if CodeOf(err) != CodeNotFound || !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("not found mapping: %v", err)
	}
	if CodeOf(errAttempt(ErrAttemptBusy)) != CodeInvalidTransition {
		t.Fatal("busy mapping")
	}
	if CodeOf(errAttempt(errors.New("redis down"))) != CodeUnavailable {
		t.Fatal("store failure mapping")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("plain errors carry no code")
	}
}
