package entity

// Invoice status constants
const (
	StatusDraft    InvoiceStatus = "draft"
	StatusSent     InvoiceStatus = "sent"
	StatusAccepted InvoiceStatus = "accepted"
	StatusRejected InvoiceStatus = "rejected"
)

// User role constants
const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Defaults applied when the remote page leaves a field empty
const (
	DefaultCurrency = "₩"
	DefaultUnit     = "식"
	InvoiceIDPrefix = "INV"
)
