package model

import (
	"time"
)

// PolicyKind discriminates the reuse policy attached to a code.
type PolicyKind string

const (
	PolicyOneTime  PolicyKind = "one_time"
	PolicyReusable PolicyKind = "reusable"
	PolicyCapped   PolicyKind = "capped"
)

// Policy is the reuse policy of an access code, resolved once from the
// stored fields. When neither a cap nor an explicit reuse flag is
// present (legacy records), the policy collapses to OneTime.
type Policy struct {
	Kind    PolicyKind `json:"kind"`
	MaxUses int        `json:"maxUses,omitempty"`
}

// AccessCode represents one issued access code gating the stream.
type AccessCode struct {
	Code            string     `db:"code" json:"code"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt       time.Time  `db:"expires_at" json:"expiresAt"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	UsedAt          *time.Time `db:"used_at" json:"usedAt,omitempty"`
	UsedBy          *string    `db:"used_by" json:"usedBy,omitempty"`
	Prefix          *string    `db:"prefix" json:"prefix,omitempty"`
	AutoExpireOnUse *bool      `db:"auto_expire_on_use" json:"autoExpireOnUse,omitempty"`
	MaxUses         *int       `db:"max_uses" json:"maxUses,omitempty"`
	CurrentUses     int        `db:"current_uses" json:"currentUses"`
}

// CreateAccessCodeParams contains parameters for inserting a new code.
type CreateAccessCodeParams struct {
	Code            string
	ExpiresAt       time.Time
	Prefix          *string
	AutoExpireOnUse bool
	MaxUses         *int
}

// IsExpired checks whether the code's expiry is in the past.
func (c *AccessCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Policy resolves the stored fields into a tagged reuse policy.
// A usage cap takes precedence over the auto-expire flag; an absent
// auto-expire flag defaults to one-time use.
func (c *AccessCode) Policy() Policy {
	if c.MaxUses != nil {
		return Policy{Kind: PolicyCapped, MaxUses: *c.MaxUses}
	}
	if c.AutoExpireOnUse != nil && !*c.AutoExpireOnUse {
		return Policy{Kind: PolicyReusable}
	}
	return Policy{Kind: PolicyOneTime}
}

// Exhausted reports whether the usage cap has been reached.
func (c *AccessCode) Exhausted() bool {
	return c.MaxUses != nil && c.CurrentUses >= *c.MaxUses
}
