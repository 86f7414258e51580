package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/omniloja/sellerbridge/app/models"
)

// Upstream seller name fields are bounded; longer customer names are
// truncated, not rejected.
const maxSellerNameLen = 60

const lockKeyPrefix = "provision:lock:"

var validate = validator.New()

// SellerDefaults are the configured values merged into every seller request.
type SellerDefaults struct {
	Contact  string
	State    string
	Country  string
	PlanID   string
	PlanName string
}

// Provisioner builds and submits seller creation requests at most once per
// payment. The per-payment lock plus the store's conditional insert prevent
// a duplicate seller under concurrent retry delivery.
type Provisioner struct {
	registry SellerRegistry
	store    RecordStore
	locker   Locker
	defaults SellerDefaults
	timeout  time.Duration
}

// NewProvisioner wires a provisioner. timeout bounds the upstream call.
func NewProvisioner(registry SellerRegistry, store RecordStore, locker Locker, defaults SellerDefaults, timeout time.Duration) *Provisioner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provisioner{
		registry: registry,
		store:    store,
		locker:   locker,
		defaults: defaults,
		timeout:  timeout,
	}
}

// Provision creates a seller for the customer unless a terminal record for
// paymentID already exists. Indeterminate upstream failures leave no record
// so the provider's retry can re-drive the attempt.
func (p *Provisioner) Provision(ctx context.Context, customer *CustomerRecord, paymentID string) (*ProvisioningResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	if res, err := p.findDuplicate(ctx, paymentID); err != nil || res != nil {
		return res, err
	}

	release, acquired, err := p.locker.Acquire(ctx, lockKeyPrefix+paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: lock backend: %v", ErrUpstreamUnavailable, err)
	}
	if !acquired {
		// A concurrent delivery of the same payment is mid-flight. Let the
		// provider retry once it has settled.
		return nil, fmt.Errorf("%w: provisioning for payment %s already in flight", ErrUpstreamUnavailable, paymentID)
	}
	defer release()

	// Re-check under the lock: the in-flight delivery may have finished
	// between our first look and the acquire.
	if res, err := p.findDuplicate(ctx, paymentID); err != nil || res != nil {
		return res, err
	}

	req, err := p.buildRequest(customer)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.registry.CreateSeller(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: seller creation: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := p.record(ctx, paymentID, models.ProvisioningOutcomeCreated, req.Email, resp); err != nil {
			return nil, err
		}
		log.Infof("[Provision] seller created payment=%s email=%s", paymentID, req.Email)
		return &ProvisioningResult{
			Outcome:        OutcomeCreated,
			SellerEmail:    req.Email,
			UpstreamStatus: resp.StatusCode,
			UpstreamBody:   string(resp.Body),
		}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Upstream rejected the request; retrying the same payload cannot
		// succeed, so the rejection is terminal.
		if err := p.record(ctx, paymentID, models.ProvisioningOutcomeRejected, req.Email, resp); err != nil {
			return nil, err
		}
		log.Warnf("[Provision] seller rejected payment=%s status=%d", paymentID, resp.StatusCode)
		return &ProvisioningResult{
			Outcome:        OutcomeRejected,
			SellerEmail:    req.Email,
			UpstreamStatus: resp.StatusCode,
			UpstreamBody:   string(resp.Body),
		}, nil
	default:
		// 5xx: outcome indeterminate, no record written.
		return nil, fmt.Errorf("%w: seller creation returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
}

func (p *Provisioner) findDuplicate(ctx context.Context, paymentID string) (*ProvisioningResult, error) {
	existing, err := p.store.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lookup: %v", ErrUpstreamUnavailable, err)
	}
	if existing == nil || !existing.IsTerminal() {
		return nil, nil
	}
	log.Infof("[Provision] duplicate payment=%s prior_outcome=%s", paymentID, existing.Outcome)
	return &ProvisioningResult{
		Outcome:     OutcomeDuplicate,
		SellerEmail: existing.SellerEmail,
	}, nil
}

func (p *Provisioner) record(ctx context.Context, paymentID, outcome, email string, resp *SellerResponse) error {
	rec := &models.ProvisioningRecord{
		PaymentID:        paymentID,
		Outcome:          outcome,
		SellerEmail:      email,
		UpstreamResponse: string(resp.Body),
	}
	created, err := p.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		return fmt.Errorf("%w: idempotency write: %v", ErrUpstreamUnavailable, err)
	}
	if !created {
		// Lost a race despite the lock (e.g. lock TTL expired mid-call).
		// The existing record wins.
		log.Warnf("[Provision] conditional insert lost for payment=%s", paymentID)
	}
	return nil
}

func (p *Provisioner) buildRequest(customer *CustomerRecord) (SellerRequest, error) {
	password, err := generatePassword(18)
	if err != nil {
		return SellerRequest{}, fmt.Errorf("password generation: %w", err)
	}

	name := truncateName(customer.Name)
	contact := strings.TrimSpace(customer.Phone)
	if contact == "" {
		contact = p.defaults.Contact
	}

	req := SellerRequest{
		StoreName:  name,
		SellerName: name,
		Email:      strings.TrimSpace(customer.Email),
		Password:   password,
		State:      p.defaults.State,
		Country:    p.defaults.Country,
		Contact:    contact,
		PlanID:     p.defaults.PlanID,
		PlanName:   p.defaults.PlanName,
	}
	if err := validate.Struct(req); err != nil {
		return SellerRequest{}, fmt.Errorf("invalid seller request: %w", err)
	}
	return req, nil
}

func truncateName(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) <= maxSellerNameLen {
		return name
	}
	return strings.TrimSpace(string(runes[:maxSellerNameLen]))
}
