package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
)

const testWebhookSecret = "whsec_test"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object))
}

func TestParseWebhookCompleted(t *testing.T) {
	payload := eventPayload("checkout.session.completed",
		`{"id":"cs_test_1","object":"checkout.session","client_reference_id":"order_42"}`)
	p := NewWebhookParser(testWebhookSecret)

	ev, err := p.ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.OrderID != "order_42" || ev.SessionID != "cs_test_1" || ev.Type != "checkout.session.completed" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestParseWebhookFallsBackToMetadata(t *testing.T) {
	payload := eventPayload("checkout.session.expired",
		`{"id":"cs_test_2","object":"checkout.session","metadata":{"order_id":"order_7"}}`)
	ev, err := NewWebhookParser(testWebhookSecret).ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if ev.OrderID != "order_7" {
		t.Fatalf("order = %q", ev.OrderID)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	payload := eventPayload("checkout.session.completed", `{"id":"cs_test_1","client_reference_id":"order_42"}`)
	_, err := NewWebhookParser(testWebhookSecret).ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	payload := eventPayload("customer.created", `{"id":"cus_1","object":"customer"}`)
	_, err := NewWebhookParser(testWebhookSecret).ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	if !errors.Is(err, ErrIgnoredEvent) {
		t.Fatalf("err = %v, want ErrIgnoredEvent", err)
	}
}
