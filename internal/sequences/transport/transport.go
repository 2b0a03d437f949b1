// Package transport defines the HTTP request shapes for the sequences
// feature.
package transport

// StartSequenceRequest is the payload for POST /sequences.
type StartSequenceRequest struct {
	LeadID string `json:"lead_id" validate:"required,uuid"`
}
