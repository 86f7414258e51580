package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/omniloja/sellerbridge/app/models"
)

const (
	EventPaymentConfirmed  = "PAYMENT_CONFIRMED"
	PaymentStatusConfirmed = "CONFIRMED"
)

// Pipeline states. Transitions are strictly forward; a stage failure moves
// directly to the terminal classification without retry inside one delivery.
const (
	StateReceived         = "RECEIVED"
	StateValidated        = "VALIDATED"
	StateCustomerResolved = "CUSTOMER_RESOLVED"
	StateProvisioned      = "PROVISIONED"
	StateRejected         = "REJECTED"
	StateIgnored          = "IGNORED"
	StateFailed           = "FAILED"
)

// Outcome classifies a terminal pipeline run.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookEvent is the parsed inbound notification. Created per request,
// discarded after processing.
type WebhookEvent struct {
	Event   string          `json:"event"`
	Payment *PaymentPayload `json:"payment"`
}

// PaymentPayload carries the fields the pipeline reads from the provider's
// payment object. Value is a pointer so a missing field is distinguishable
// from zero.
type PaymentPayload struct {
	ID       string           `json:"id"`
	Status   string           `json:"status"`
	Value    *decimal.Decimal `json:"value"`
	Customer CustomerField    `json:"customer"`
}

// EmbeddedCustomer is a customer record embedded directly in the webhook
// payload.
type EmbeddedCustomer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobilePhone"`
}

// CustomerField accepts the three shapes the provider sends for
// payment.customer: a bare identifier, an embedded record, or nothing.
// Any other shape unmarshals to the absent state so the resolver's last
// fallback tier can recover the customer via the payment lookup.
type CustomerField struct {
	ID       string
	Embedded *EmbeddedCustomer
}

func (f *CustomerField) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = CustomerField{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*f = CustomerField{ID: strings.TrimSpace(id)}
		return nil
	case '{':
		var rec EmbeddedCustomer
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return err
		}
		*f = CustomerField{Embedded: &rec}
		return nil
	default:
		// Unusable shape (number, bool, array). Not a schema violation;
		// the resolver falls back to the payment lookup.
		*f = CustomerField{}
		return nil
	}
}

// IsAbsent reports whether the field carries neither an id nor a record.
func (f CustomerField) IsAbsent() bool {
	return f.ID == "" && f.Embedded == nil
}

// CustomerRecord is the canonical customer identity used to provision a
// seller. Fetched per request, never persisted.
type CustomerRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentLookup is the slimmed payment object fetched from the billing
// provider when the webhook payload carries no usable customer.
type PaymentLookup struct {
	ID         string
	CustomerID string
	Status     string
	Value      decimal.Decimal
}

// SellerRequest is the provisioning request submitted to the marketplace
// platform. Built deterministically from a CustomerRecord plus configured
// defaults; the password is generated fresh per provisioning.
type SellerRequest struct {
	StoreName  string `json:"store_name" validate:"required,max=60"`
	SellerName string `json:"seller_name" validate:"required,max=60"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=12"`
	State      string `json:"state" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Contact    string `json:"contact" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required"`
	PlanName   string `json:"plan_name" validate:"required"`
}

// SellerResponse is the raw upstream answer to a seller creation call.
// Transport failures surface as errors, not as a response.
type SellerResponse struct {
	StatusCode int
	Body       []byte
}

// ProvisioningResult is the terminal outcome of one provisioning attempt.
type ProvisioningResult struct {
	Outcome        Outcome
	SellerEmail    string
	UpstreamStatus int
	UpstreamBody   string
}

// CustomerDirectory is the billing provider surface the resolver needs.
// Implemented by the Asaas HTTP client in production and by fakes in tests.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id string) (*CustomerRecord, error)
	GetPayment(ctx context.Context, id string) (*PaymentLookup, error)
}

// SellerRegistry is the marketplace surface the provisioner needs.
type SellerRegistry interface {
	CreateSeller(ctx context.Context, req SellerRequest) (*SellerResponse, error)
}

// RecordStore holds terminal idempotency records keyed by payment id.
// FindByPaymentID returns (nil, nil) when no record exists. CreateIfAbsent
// must be a conditional write: it reports false when another writer won.
type RecordStore interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*models.ProvisioningRecord, error)
	CreateIfAbsent(ctx context.Context, rec *models.ProvisioningRecord) (bool, error)
}

// Locker serializes provisioning per payment id across concurrent webhook
// deliveries. Acquire is non-blocking; acquired=false means another delivery
// holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// DeliveryInput is the normalized input for webhook delivery persistence.
type DeliveryInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SecretValid     bool
}

// EventLog persists webhook deliveries idempotently and records their
// processing result.
type EventLog interface {
	RecordDelivery(ctx context.Context, in DeliveryInput) (created bool, stored *models.WebhookEvent, err error)
	MarkProcessed(ctx context.Context, id uint, processingErr error) error
}
