package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// Resolver recovers a canonical customer record from a payment payload. The
// provider's webhook payload is not contractually guaranteed to embed full
// customer data, so resolution runs a strict fallback chain that trades up
// to two extra round trips for never guessing a customer identity.
type Resolver struct {
	directory    CustomerDirectory
	defaultPhone string
}

// NewResolver creates a resolver over a customer directory. defaultPhone is
// substituted when no tier yields a phone number.
func NewResolver(directory CustomerDirectory, defaultPhone string) *Resolver {
	return &Resolver{directory: directory, defaultPhone: defaultPhone}
}

// Resolve tries, in order: the embedded customer record, a fetch by bare
// customer id, and a payment lookup followed by a customer fetch. The first
// tier that yields a record with both a name and an email wins.
func (r *Resolver) Resolve(ctx context.Context, payment *PaymentPayload) (*CustomerRecord, error) {
	if embedded := payment.Customer.Embedded; embedded != nil && usable(embedded.Name, embedded.Email) {
		phone := strings.TrimSpace(embedded.Phone)
		if phone == "" {
			phone = strings.TrimSpace(embedded.MobilePhone)
		}
		return r.finish(&CustomerRecord{
			ID:    strings.TrimSpace(embedded.ID),
			Name:  strings.TrimSpace(embedded.Name),
			Email: strings.TrimSpace(embedded.Email),
			Phone: phone,
		})
	}

	id := payment.Customer.ID
	if id == "" && payment.Customer.Embedded != nil {
		// Partial embedded record: fall back to a fetch by its id.
		id = strings.TrimSpace(payment.Customer.Embedded.ID)
	}
	if id != "" {
		record, err := r.fetchCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		return r.finish(record)
	}

	// No usable customer in the payload: recover the identity via the full
	// payment record.
	log.Debugf("[Resolver] payment %s carries no usable customer, falling back to payment lookup", payment.ID)
	lookup, err := r.directory.GetPayment(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, fmt.Errorf("%w: payment %s not found upstream", ErrCustomerUnresolvable, payment.ID)
		}
		return nil, err
	}
	if strings.TrimSpace(lookup.CustomerID) == "" {
		return nil, fmt.Errorf("%w: payment %s has no customer reference", ErrCustomerUnresolvable, payment.ID)
	}
	record, err := r.fetchCustomer(ctx, lookup.CustomerID)
	if err != nil {
		return nil, err
	}
	return r.finish(record)
}

func (r *Resolver) fetchCustomer(ctx context.Context, id string) (*CustomerRecord, error) {
	record, err := r.directory.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, fmt.Errorf("%w: customer %s not found upstream", ErrCustomerUnresolvable, id)
		}
		return nil, err
	}
	return record, nil
}

func (r *Resolver) finish(record *CustomerRecord) (*CustomerRecord, error) {
	if !usable(record.Name, record.Email) {
		return nil, fmt.Errorf("%w: record lacks name or email", ErrCustomerUnresolvable)
	}
	if strings.TrimSpace(record.Phone) == "" {
		// A missing phone number never blocks provisioning.
		record.Phone = r.defaultPhone
	}
	return record, nil
}

func usable(name, email string) bool {
	return strings.TrimSpace(name) != "" && strings.TrimSpace(email) != ""
}
