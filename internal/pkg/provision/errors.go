package provision

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors of the pipeline taxonomy. Every internal failure is
// classified into exactly one member before it reaches the controller.
var (
	// ErrMalformedBody means the request body is not well-formed JSON.
	ErrMalformedBody = errors.New("malformed webhook body")
	// ErrUnauthorized means the configured shared secret did not match.
	ErrUnauthorized = errors.New("webhook secret mismatch")
	// ErrCustomerUnresolvable means no fallback tier produced a customer
	// with both a name and an email.
	ErrCustomerUnresolvable = errors.New("customer unresolvable")
	// ErrUpstreamUnavailable marks retryable upstream failures (network
	// error, timeout, 5xx). The provider's webhook retry may re-drive the
	// pipeline safely because no idempotency record was written.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Directory-level lookups. The resolver folds these into
	// ErrCustomerUnresolvable.
	ErrCustomerNotFound = errors.New("customer not found")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// SchemaError reports a missing or invalid required field.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return "schema violation: missing or invalid field " + e.Field
}

// BusinessRuleError reports a payload that is structurally fine but violates
// a confirmation rule (non-positive value, unconfirmed status).
type BusinessRuleError struct {
	Reason string
}

func (e *BusinessRuleError) Error() string {
	return "business rule violation: " + e.Reason
}

// ErrorCode maps a classified error to its stable machine-readable code.
func ErrorCode(err error) string {
	var schemaErr *SchemaError
	var ruleErr *BusinessRuleError
	switch {
	case errors.Is(err, ErrMalformedBody):
		return "malformed_body"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &schemaErr):
		return "schema_violation"
	case errors.As(err, &ruleErr):
		return "business_rule_violation"
	case errors.Is(err, ErrCustomerUnresolvable):
		return "customer_unresolvable"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a classified error to the response code the billing
// provider sees. 503 signals a safe retry; 4xx codes are never retried.
func HTTPStatus(err error) int {
	var schemaErr *SchemaError
	var ruleErr *BusinessRuleError
	switch {
	case errors.Is(err, ErrMalformedBody), errors.As(err, &schemaErr), errors.As(err, &ruleErr):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrCustomerUnresolvable):
		return fiber.StatusNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
