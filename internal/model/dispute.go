package model

import "time"

// Dispute is the persisted form of a saved dispute, as the persistence API stores it
type Dispute struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	CreditorName  string    `json:"creditorName"`
	DisputeReason string    `json:"disputeReason"`
	Instructions  string    `json:"instructions,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// NewDispute is the POST /api/disputes body
type NewDispute struct {
	AccountID     string `json:"accountId"`
	CreditorName  string `json:"creditorName"`
	DisputeReason string `json:"disputeReason"`
	Instructions  string `json:"instructions,omitempty"`
}

// Dispute statuses
const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusResolved = "resolved"
	StatusRejected = "rejected"
)

// SectionState is the derived completion state of one category.
// AllSaved is never true when TotalDisputable is zero; that category is Clean.
type SectionState struct {
	Category        Category `json:"category"`
	CompletedCount  int      `json:"completed_count"`
	TotalDisputable int      `json:"total_disputable"`
	AllSaved        bool     `json:"all_saved"`
	Clean           bool     `json:"clean"`
	Pending         []string `json:"pending,omitempty"` // Disputable item ids not yet saved
}
