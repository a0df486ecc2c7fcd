package services

import (
	"encoding/json"
	"io"
	"time"

	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
)

// CreateSaleRequest opens a new sale window owned by the signer.
type CreateSaleRequest struct {
	// TokenRef is the opaque token descriptor, stored uninterpreted.
	TokenRef ledger.Payload `json:"token_ref"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
}

// SetActiveRequest toggles the sale's pause flag.
type SetActiveRequest struct {
	SaleID ledger.SaleID `json:"sale_id"`
	Active bool          `json:"active"`
}

// TransferOwnershipRequest hands the sale to a new owner.
type TransferOwnershipRequest struct {
	SaleID ledger.SaleID `json:"sale_id"`
	// NewOwner is the hex principal receiving ownership.
	NewOwner string `json:"new_owner"`
}

// ContributeRequest submits the signer's opaque encrypted contribution.
type ContributeRequest struct {
	SaleID  ledger.SaleID  `json:"sale_id"`
	Payload ledger.Payload `json:"payload"`
}

// FinalizeRequest closes the sale with an opaque summary commitment.
type FinalizeRequest struct {
	SaleID  ledger.SaleID  `json:"sale_id"`
	Summary ledger.Payload `json:"summary"`
}

// ClaimRequest redeems the signer's opaque allocation payload.
type ClaimRequest struct {
	SaleID     ledger.SaleID  `json:"sale_id"`
	Allocation ledger.Payload `json:"allocation"`
}

// CreateSaleResponse confirms sale creation.
type CreateSaleResponse struct {
	SaleID ledger.SaleID `json:"sale_id"`
}

// ActiveResponse reports the derived active predicate for a sale.
type ActiveResponse struct {
	SaleID ledger.SaleID `json:"sale_id"`
	Active bool          `json:"active"`
}

// EventsResponse carries a slice of the append-only event log.
type EventsResponse struct {
	Events []ledger.Event `json:"events"`
}

// ErrorResponse reports a rejected transition. Kind is the specific error
// kind from the ledger taxonomy, never a generic failure.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// UnmarshalMessage deserializes a message from JSON bytes.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeMessage deserializes a message from a JSON reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON bytes.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}
