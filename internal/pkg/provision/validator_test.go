package provision

import (
	"errors"
	"testing"
)

func TestValidateMalformedBody(t *testing.T) {
	v := NewValidator("")
	for _, raw := range []string{"", "{", "not json", `{"event":`} {
		_, err := v.Validate([]byte(raw), "")
		if !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("Validate(%q) = %v, want ErrMalformedBody", raw, err)
		}
	}
}

func TestValidateSecret(t *testing.T) {
	body := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"pay_1","customer":"cus_1","value":10,"status":"CONFIRMED"}}`)

	v := NewValidator("top-secret")
	if _, err := v.Validate(body, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing header: got %v, want ErrUnauthorized", err)
	}
	if _, err := v.Validate(body, "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong header: got %v, want ErrUnauthorized", err)
	}
	if _, err := v.Validate(body, "top-secret"); err != nil {
		t.Fatalf("matching header: unexpected error %v", err)
	}

	// No configured secret disables the check entirely.
	open := NewValidator("")
	if _, err := open.Validate(body, "anything"); err != nil {
		t.Fatalf("unconfigured secret: unexpected error %v", err)
	}
}

func TestValidateSchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "missing event", raw: `{"payment":{"id":"p","value":1,"status":"CONFIRMED"}}`, field: "event"},
		{name: "missing payment", raw: `{"event":"PAYMENT_CONFIRMED"}`, field: "payment"},
		{name: "missing payment id", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"value":1,"status":"CONFIRMED"}}`, field: "payment.id"},
		{name: "missing value", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","status":"CONFIRMED"}}`, field: "payment.value"},
		{name: "missing status", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":1}}`, field: "payment.status"},
	}

	v := NewValidator("")
	for _, tt := range tests {
		_, err := v.Validate([]byte(tt.raw), "")
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("%s: got %v, want SchemaError", tt.name, err)
		}
		if schemaErr.Field != tt.field {
			t.Fatalf("%s: field = %q, want %q", tt.name, schemaErr.Field, tt.field)
		}
	}
}

func TestValidateBusinessRules(t *testing.T) {
	v := NewValidator("")

	tests := []struct {
		name   string
		raw    string
		reject bool
	}{
		{name: "zero value rejected", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":0,"status":"CONFIRMED"}}`, reject: true},
		{name: "negative value rejected", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":-5,"status":"CONFIRMED"}}`, reject: true},
		{name: "one cent accepted", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":0.01,"status":"CONFIRMED"}}`, reject: false},
		{name: "pending status rejected", raw: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":10,"status":"PENDING"}}`, reject: true},
	}

	for _, tt := range tests {
		_, err := v.Validate([]byte(tt.raw), "")
		var ruleErr *BusinessRuleError
		got := errors.As(err, &ruleErr)
		if got != tt.reject {
			t.Fatalf("%s: err = %v, reject = %v, want %v", tt.name, err, got, tt.reject)
		}
	}
}

func TestValidateIgnoresOtherEvents(t *testing.T) {
	v := NewValidator("")

	// Even payloads that would fail the confirmed-payment schema are
	// accepted as no-ops for other event types.
	for _, raw := range []string{
		`{"event":"PAYMENT_RECEIVED","payment":{"id":"p","value":10,"status":"PENDING"}}`,
		`{"event":"PAYMENT_OVERDUE"}`,
	} {
		evt, err := v.Validate([]byte(raw), "")
		if err != nil {
			t.Fatalf("Validate(%q): unexpected error %v", raw, err)
		}
		if evt.Event == EventPaymentConfirmed {
			t.Fatalf("Validate(%q): event parsed as confirmed", raw)
		}
	}
}

func TestCustomerFieldShapes(t *testing.T) {
	v := NewValidator("")

	evt, err := v.Validate([]byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","customer":"cus_9","value":1,"status":"CONFIRMED"}}`), "")
	if err != nil {
		t.Fatalf("bare id: unexpected error %v", err)
	}
	if evt.Payment.Customer.ID != "cus_9" || evt.Payment.Customer.Embedded != nil {
		t.Fatalf("bare id: unexpected customer field %+v", evt.Payment.Customer)
	}

	evt, err = v.Validate([]byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","customer":{"name":"Ana","email":"ana@x.com"},"value":1,"status":"CONFIRMED"}}`), "")
	if err != nil {
		t.Fatalf("embedded: unexpected error %v", err)
	}
	if evt.Payment.Customer.Embedded == nil || evt.Payment.Customer.Embedded.Name != "Ana" {
		t.Fatalf("embedded: unexpected customer field %+v", evt.Payment.Customer)
	}

	// Absent and unusable shapes both resolve to the absent state.
	for _, raw := range []string{
		`{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","value":1,"status":"CONFIRMED"}}`,
		`{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","customer":null,"value":1,"status":"CONFIRMED"}}`,
		`{"event":"PAYMENT_CONFIRMED","payment":{"id":"p","customer":42,"value":1,"status":"CONFIRMED"}}`,
	} {
		evt, err = v.Validate([]byte(raw), "")
		if err != nil {
			t.Fatalf("Validate(%q): unexpected error %v", raw, err)
		}
		if !evt.Payment.Customer.IsAbsent() {
			t.Fatalf("Validate(%q): customer field not absent: %+v", raw, evt.Payment.Customer)
		}
	}
}
