package provision

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
)

// Validator authenticates and schema-checks an inbound webhook delivery.
// Pure function of its inputs; it performs no I/O.
type Validator struct {
	secret string
}

// NewValidator creates a validator. An empty secret disables the shared
// secret check.
func NewValidator(secret string) *Validator {
	return &Validator{secret: strings.TrimSpace(secret)}
}

// Validate parses and checks a raw delivery. Event types other than
// PAYMENT_CONFIRMED are returned without error; the pipeline terminates them
// as ignored so the provider does not retry a no-op.
func (v *Validator) Validate(raw []byte, secretHeader string) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if v.secret != "" {
		header := strings.TrimSpace(secretHeader)
		if subtle.ConstantTimeCompare([]byte(header), []byte(v.secret)) != 1 {
			return nil, ErrUnauthorized
		}
	}

	if strings.TrimSpace(evt.Event) == "" {
		return nil, &SchemaError{Field: "event"}
	}
	if evt.Event != EventPaymentConfirmed {
		// Accepted as a no-op; not an error.
		return &evt, nil
	}

	if evt.Payment == nil {
		return nil, &SchemaError{Field: "payment"}
	}
	if strings.TrimSpace(evt.Payment.ID) == "" {
		return nil, &SchemaError{Field: "payment.id"}
	}
	if evt.Payment.Value == nil {
		return nil, &SchemaError{Field: "payment.value"}
	}
	if strings.TrimSpace(evt.Payment.Status) == "" {
		return nil, &SchemaError{Field: "payment.status"}
	}

	if !evt.Payment.Value.IsPositive() {
		return nil, &BusinessRuleError{Reason: "payment value must be positive"}
	}
	if evt.Payment.Status != PaymentStatusConfirmed {
		return nil, &BusinessRuleError{Reason: "payment status is not CONFIRMED"}
	}

	return &evt, nil
}
