package provision

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func newTestPipeline(dir *fakeDirectory, registry *fakeRegistry, secret string) *Pipeline {
	return NewPipeline(
		NewValidator(secret),
		NewResolver(dir, "0000000000"),
		NewProvisioner(registry, NewMemoryStore(0), NewMemoryLocker(), testDefaults(), 0),
		NewMemoryEventLog(),
	)
}

func TestPipelineConfirmedPaymentEndToEnd(t *testing.T) {
	dir := &fakeDirectory{customers: map[string]*CustomerRecord{
		"cus_1": {ID: "cus_1", Name: "Ana Silva", Email: "ana@x.com"},
	}}
	registry := &fakeRegistry{status: http.StatusCreated, body: `{"seller":{"id":9}}`}
	p := newTestPipeline(dir, registry, "")

	raw := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","value":45.0,"status":"CONFIRMED"}}`)
	result, err := p.Handle(context.Background(), raw, Delivery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != StateProvisioned || result.Outcome != OutcomeCreated {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.SellerEmail != "ana@x.com" {
		t.Fatalf("unexpected seller email: %q", result.SellerEmail)
	}
	if registry.calls != 1 {
		t.Fatalf("registry received %d calls, want 1", registry.calls)
	}
	if registry.requests[0].SellerName != "Ana Silva" {
		t.Fatalf("unexpected seller name: %q", registry.requests[0].SellerName)
	}
}

func TestPipelineReplayedDeliveryIsDuplicate(t *testing.T) {
	dir := &fakeDirectory{customers: map[string]*CustomerRecord{
		"cus_1": {ID: "cus_1", Name: "Ana Silva", Email: "ana@x.com"},
	}}
	registry := &fakeRegistry{status: http.StatusOK}
	p := newTestPipeline(dir, registry, "")

	raw := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","value":45.0,"status":"CONFIRMED"}}`)
	if _, err := p.Handle(context.Background(), raw, Delivery{}); err != nil {
		t.Fatalf("first delivery: unexpected error %v", err)
	}

	result, err := p.Handle(context.Background(), raw, Delivery{})
	if err != nil {
		t.Fatalf("replay: unexpected error %v", err)
	}
	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("replay outcome = %s, want duplicate", result.Outcome)
	}
	if registry.calls != 1 {
		t.Fatalf("registry received %d calls, want exactly 1", registry.calls)
	}
}

func TestPipelineRetryAfterUpstreamFailureReprocesses(t *testing.T) {
	dir := &fakeDirectory{customers: map[string]*CustomerRecord{
		"cus_1": {ID: "cus_1", Name: "Ana Silva", Email: "ana@x.com"},
	}}
	registry := &fakeRegistry{status: http.StatusBadGateway}
	p := newTestPipeline(dir, registry, "")

	raw := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","value":45.0,"status":"CONFIRMED"}}`)
	if _, err := p.Handle(context.Background(), raw, Delivery{}); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("first delivery: got %v, want ErrUpstreamUnavailable", err)
	}

	// The provider retries the identical delivery; the failed attempt must
	// not dedup it away.
	registry.status = http.StatusCreated
	result, err := p.Handle(context.Background(), raw, Delivery{})
	if err != nil {
		t.Fatalf("retry: unexpected error %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("retry outcome = %s, want created", result.Outcome)
	}
}

func TestPipelineIgnoresOtherEventsWithoutUpstreamCalls(t *testing.T) {
	dir := &fakeDirectory{}
	registry := &fakeRegistry{status: http.StatusOK}
	p := newTestPipeline(dir, registry, "")

	result, err := p.Handle(context.Background(), []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1","value":45.0,"status":"PENDING"}}`), Delivery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != StateIgnored || result.Outcome != OutcomeIgnored {
		t.Fatalf("unexpected result: %+v", result)
	}
	if dir.customerCalls+dir.paymentCalls+registry.calls != 0 {
		t.Fatalf("upstream called for an ignored event")
	}
}

func TestPipelineCustomerLookup404(t *testing.T) {
	dir := &fakeDirectory{}
	registry := &fakeRegistry{status: http.StatusOK}
	p := newTestPipeline(dir, registry, "")

	raw := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_gone","value":45.0,"status":"CONFIRMED"}}`)
	result, err := p.Handle(context.Background(), raw, Delivery{})
	if !errors.Is(err, ErrCustomerUnresolvable) {
		t.Fatalf("got %v, want ErrCustomerUnresolvable", err)
	}
	if result.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", result.State)
	}
	if registry.calls != 0 {
		t.Fatalf("registry called despite unresolvable customer")
	}
}

func TestPipelineMalformedReplayStillFails(t *testing.T) {
	p := newTestPipeline(&fakeDirectory{}, &fakeRegistry{}, "")

	raw := []byte(`{malformed`)
	for i := 0; i < 2; i++ {
		_, err := p.Handle(context.Background(), raw, Delivery{})
		if !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("attempt %d: got %v, want ErrMalformedBody", i+1, err)
		}
	}
}

func TestPipelineSecretMismatch(t *testing.T) {
	p := newTestPipeline(&fakeDirectory{}, &fakeRegistry{}, "top-secret")

	raw := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","value":45.0,"status":"CONFIRMED"}}`)
	_, err := p.Handle(context.Background(), raw, Delivery{SecretHeader: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestDeliveryEventID(t *testing.T) {
	if got := deliveryEventID("evt_1", []byte("{}")); got != "evt_1" {
		t.Fatalf("header id ignored: %q", got)
	}
	a := deliveryEventID("", []byte(`{"a":1}`))
	b := deliveryEventID("", []byte(`{"a":1}`))
	c := deliveryEventID("", []byte(`{"a":2}`))
	if a != b {
		t.Fatalf("identical payloads produced different ids: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("distinct payloads produced the same id")
	}
}
