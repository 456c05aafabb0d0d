package model

import (
	"strings"
	"time"
)

// Role is the platform role of the account a linking code was issued for.
type Role string

const (
	RoleSupplier    Role = "supplier"
	RoleTransporter Role = "transporter"
	RoleCustomer    Role = "customer"
)

// ParseRole maps free-form input to a Role. Unknown values fall back to customer.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSupplier:
		return RoleSupplier
	case RoleTransporter:
		return RoleTransporter
	default:
		return RoleCustomer
	}
}

// Title is the human label used in bot replies.
func (r Role) Title() string {
	switch r {
	case RoleSupplier:
		return "Supplier"
	case RoleTransporter:
		return "Transporter"
	default:
		return "Customer"
	}
}

// DemoCode is a pre-seeded multi-use code bound to a fixed demo account.
type DemoCode struct {
	Code    string
	Role    Role
	OwnerID string
}

// DemoCodes lists the built-in demo assignments, one per role.
func DemoCodes() []DemoCode {
	return []DemoCode{
		{Code: "SUP100", Role: RoleSupplier, OwnerID: "supplier-demo"},
		{Code: "TRA200", Role: RoleTransporter, OwnerID: "transporter-demo"},
		{Code: "CUS150", Role: RoleCustomer, OwnerID: "customer-demo"},
	}
}

// DemoCodeFor returns the demo code assigned to role, if any.
func DemoCodeFor(role Role) (DemoCode, bool) {
	for _, d := range DemoCodes() {
		if d.Role == role {
			return d, true
		}
	}
	return DemoCode{}, false
}

// LinkingCode proves that a chat is allowed to bind to OwnerID.
type LinkingCode struct {
	Code      string
	OwnerID   string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	Demo      bool
}

// NormalizeCode upper-cases and trims user input before lookup.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (c *LinkingCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Remaining is never negative.
func (c *LinkingCode) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// CodeStatus is the read-only view returned by inspection.
type CodeStatus struct {
	Code      string
	Valid     bool
	Reason    string // "", "expired", "already_used"
	ExpiresAt time.Time
	Remaining time.Duration
}

// Redemption is the outcome of a successful code redemption.
type Redemption struct {
	Link AccountLink
	Role Role
	Demo bool
	// Replaced is the chat that lost the link to this redemption, zero when none.
	Replaced int64
}
