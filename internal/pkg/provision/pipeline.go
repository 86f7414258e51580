package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/omniloja/sellerbridge/app/models"
)

// Delivery carries the transport metadata of one inbound webhook request.
type Delivery struct {
	SecretHeader string
	EventID      string
}

// PipelineResult is the terminal classification of one delivery.
type PipelineResult struct {
	State          string
	Outcome        Outcome
	Event          string
	PaymentID      string
	SellerEmail    string
	UpstreamStatus int
	UpstreamBody   string
}

// Pipeline sequences validation, customer resolution and provisioning for a
// single delivery. Failures short-circuit; retries are the billing
// provider's responsibility, driven by the HTTP status the controller maps
// from the returned error.
type Pipeline struct {
	validator   *Validator
	resolver    *Resolver
	provisioner *Provisioner
	events      EventLog
}

// NewPipeline wires the three stages and the delivery log.
func NewPipeline(validator *Validator, resolver *Resolver, provisioner *Provisioner, events EventLog) *Pipeline {
	return &Pipeline{
		validator:   validator,
		resolver:    resolver,
		provisioner: provisioner,
		events:      events,
	}
}

// Handle runs one delivery through the pipeline.
func (p *Pipeline) Handle(ctx context.Context, raw []byte, delivery Delivery) (*PipelineResult, error) {
	result := &PipelineResult{State: StateReceived}

	evt, verr := p.validator.Validate(raw, delivery.SecretHeader)

	eventType := ""
	if evt != nil {
		eventType = evt.Event
	}
	in := DeliveryInput{
		Provider:        models.WebhookProviderAsaas,
		ProviderEventID: deliveryEventID(delivery.EventID, raw),
		EventType:       eventType,
		PayloadJSON:     string(raw),
		SecretValid:     !errors.Is(verr, ErrUnauthorized),
	}

	if verr != nil {
		// Failed deliveries are logged but never deduplicated: a replayed
		// malformed or unauthorized request must fail the same way again.
		if _, stored, err := p.events.RecordDelivery(ctx, in); err != nil {
			log.Errorf("[Pipeline] delivery persist failed: %v", err)
		} else {
			_ = p.events.MarkProcessed(ctx, stored.ID, verr)
		}
		result.State = StateFailed
		return result, verr
	}

	created, stored, err := p.events.RecordDelivery(ctx, in)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// Same delivery already processed to completion.
		log.Infof("[Pipeline] duplicate delivery event_id=%s", stored.ProviderEventID)
		result.State = StateIgnored
		result.Outcome = OutcomeDuplicate
		result.Event = evt.Event
		if evt.Payment != nil {
			result.PaymentID = evt.Payment.ID
		}
		return result, nil
	}

	if evt.Event != EventPaymentConfirmed {
		_ = p.events.MarkProcessed(ctx, stored.ID, nil)
		log.Infof("[Pipeline] ignored event type %s", evt.Event)
		result.State = StateIgnored
		result.Outcome = OutcomeIgnored
		result.Event = evt.Event
		return result, nil
	}

	result.State = StateValidated
	result.Event = evt.Event
	result.PaymentID = evt.Payment.ID

	customer, err := p.resolver.Resolve(ctx, evt.Payment)
	if err != nil {
		_ = p.events.MarkProcessed(ctx, stored.ID, err)
		result.State = StateFailed
		return result, err
	}
	result.State = StateCustomerResolved

	res, err := p.provisioner.Provision(ctx, customer, evt.Payment.ID)
	if err != nil {
		_ = p.events.MarkProcessed(ctx, stored.ID, err)
		result.State = StateFailed
		return result, err
	}
	_ = p.events.MarkProcessed(ctx, stored.ID, nil)

	result.Outcome = res.Outcome
	result.SellerEmail = res.SellerEmail
	result.UpstreamStatus = res.UpstreamStatus
	result.UpstreamBody = res.UpstreamBody
	if res.Outcome == OutcomeRejected {
		result.State = StateRejected
	} else {
		result.State = StateProvisioned
	}
	return result, nil
}

// deliveryEventID keys deliveries by the provider event id when present and
// by a payload hash otherwise, so identical replays collapse onto one row.
func deliveryEventID(headerID string, raw []byte) string {
	if id := strings.TrimSpace(headerID); id != "" {
		return id
	}
	sum := sha256.Sum256(raw)
	return "hash:" + hex.EncodeToString(sum[:])
}
