// Package domain defines the persistence models for discounts, redemptions,
// and outbox entries. These types are mapped with GORM and form the core data
// layer of the discount redemption service.
package domain

import "time"

// Discount represents a redeemable discount definition owned by a business.
// Discounts are created and updated by an external catalog process; this
// service treats them as read-only and only resolves active ones.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - AccessKey: public, unique lookup key clients present when redeeming.
//   - BusinessID: identifier of the owning business.
//   - PerDeviceCooldownMinutes: minimum minutes between redemptions by the
//     same device; 0 disables cooldown enforcement.
//   - PerEmailOnce: when true, one redemption per email per discount.
//   - Active: inactive discounts are invisible to lookup and redemption.
type Discount struct {
	ID                       string    `json:"id"         gorm:"type:char(36);primaryKey"`
	AccessKey                string    `json:"accessKey"  gorm:"type:varchar(64);not null;uniqueIndex:ux_discount_access_key"`
	BusinessID               string    `json:"businessId" gorm:"type:varchar(64);not null;index"`
	PerDeviceCooldownMinutes int       `json:"perDeviceCooldownMinutes" gorm:"not null;default:0"`
	PerEmailOnce             bool      `json:"perEmailOnce" gorm:"not null;default:false"`
	Active                   bool      `json:"active"     gorm:"not null;default:true;index"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// TableName returns the database table name for Discount.
func (Discount) TableName() string { return "discounts" }

// Redemption records one admitted redemption of a discount. Rows are
// append-only: they are never updated or deleted by this service.
//
// The unique index on IdempotencyKey is the sole correctness anchor for
// retried requests; email-once and device-cooldown enforcement query this
// table but are best-effort under concurrency (see services.RedemptionService).
type Redemption struct {
	ID             string    `json:"id"             gorm:"type:char(36);primaryKey"`
	DiscountID     string    `json:"discountId"     gorm:"type:char(36);not null;index:idx_redemption_email,priority:1;index:idx_redemption_device,priority:1"`
	AccessKey      string    `json:"accessKey"      gorm:"type:varchar(64);not null;index"`
	BusinessID     string    `json:"businessId"     gorm:"type:varchar(64);not null"`
	IdempotencyKey string    `json:"idempotencyKey" gorm:"type:varchar(200);not null;uniqueIndex:ux_redemption_idem_key"`
	Email          string    `json:"email,omitempty"    gorm:"type:varchar(255);index:idx_redemption_email,priority:2"`
	DeviceID       string    `json:"deviceId,omitempty" gorm:"type:varchar(128);index:idx_redemption_device,priority:2"`
	IP             string    `json:"ip"             gorm:"type:varchar(64)"`
	CreatedAt      time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for Redemption.
func (Redemption) TableName() string { return "redemptions" }

// Outbox entry statuses. Status only moves forward from pending; it never
// reverts.
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// EventDiscountClaimed is the outbox entry type written for every successful
// (non-replay) redemption admission.
const EventDiscountClaimed = "DiscountClaimed"

// OutboxEntry stages a domain event for asynchronous publication. Entries are
// inserted as pending alongside the triggering write and flipped to sent by
// the dispatcher; nothing in this service deletes them (retention is an
// external concern).
//
// LastError and the failed status are modeled for a real publisher but are
// not written by the current log-only dispatcher.
type OutboxEntry struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Type      string    `json:"type"      gorm:"type:varchar(64);not null"`
	Payload   string    `json:"payload"   gorm:"type:text;not null"`
	Status    string    `json:"status"    gorm:"type:varchar(16);not null;default:'pending';index:idx_outbox_claim,priority:1"`
	Attempts  int       `json:"attempts"  gorm:"not null;default:0"`
	LastError *string   `json:"lastError,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_outbox_claim,priority:2"`
}

// TableName returns the database table name for OutboxEntry.
func (OutboxEntry) TableName() string { return "outbox_entries" }

// DiscountClaimedPayload is the JSON document stored in an OutboxEntry of
// type EventDiscountClaimed.
type DiscountClaimedPayload struct {
	RedemptionID string    `json:"redemptionId"`
	DiscountID   string    `json:"discountId"`
	BusinessID   string    `json:"businessId"`
	Email        string    `json:"email,omitempty"`
	DeviceID     string    `json:"deviceId,omitempty"`
	ClaimedAt    time.Time `json:"claimedAt"`
}
