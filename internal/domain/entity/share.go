package entity

import "time"

// InvoiceShare is a read-only link granting unauthenticated access to one
// invoice. InvoiceID is the logical invoice id.
type InvoiceShare struct {
	ID        string     `json:"id"`
	InvoiceID string     `json:"invoiceId"`
	Token     string     `json:"token"`
	CreatedBy string     `json:"createdBy"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// IsExpired reports whether the share has an expiry that is not after now.
func (s *InvoiceShare) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
