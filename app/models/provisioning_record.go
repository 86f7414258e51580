package models

import "time"

// Terminal provisioning outcomes. Records exist only for outcomes that must
// never be re-driven; an unavailable upstream leaves no record so the
// provider's retry can run the pipeline again.
const (
	ProvisioningOutcomeCreated  = "created"
	ProvisioningOutcomeRejected = "rejected"
)

// ProvisioningRecord is the idempotency guard for seller provisioning. One
// row per payment id; the unique index makes the check-then-write sequence a
// conditional insert under concurrent webhook retries.
type ProvisioningRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PaymentID        string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_provisioning_records_payment" json:"payment_id"`
	Outcome          string    `gorm:"type:varchar(20);not null;index" json:"outcome"`
	SellerEmail      string    `gorm:"type:varchar(200);default:''" json:"seller_email"`
	UpstreamResponse string    `gorm:"type:text" json:"upstream_response"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the record blocks another provisioning attempt.
func (r *ProvisioningRecord) IsTerminal() bool {
	switch r.Outcome {
	case ProvisioningOutcomeCreated, ProvisioningOutcomeRejected:
		return true
	default:
		return false
	}
}
