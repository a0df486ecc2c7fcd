// Package client provides a Go SDK for the launchpad transition API.
//
// Mutating calls are signed with the client's Ed25519 key; the signer is the
// principal the ledger sees. Rejections carry the ledger's typed sentinel
// errors, recovered from the error kind in the response body.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CabinBranis/fhe-ido-launchpad/identity"
	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
	"github.com/CabinBranis/fhe-ido-launchpad/services"
)

// Client talks to a launchpad daemon on behalf of one principal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signingKey identity.PrivateKey
}

// New creates a client for the daemon at baseURL, signing with key.
func New(baseURL string, key identity.PrivateKey) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signingKey: key,
	}
}

// Principal returns the principal this client signs as.
func (c *Client) Principal() identity.Principal {
	p, _ := c.signingKey.Principal()
	return p
}

// CreateSale opens a new sale window owned by this client's principal.
func (c *Client) CreateSale(ctx context.Context, tokenRef ledger.Payload, start, end time.Time) (ledger.SaleID, error) {
	req := &services.CreateSaleRequest{TokenRef: tokenRef, Start: start, End: end}
	var resp services.CreateSaleResponse
	if err := postSigned(ctx, c, "/sales", req, &resp); err != nil {
		return 0, err
	}
	return resp.SaleID, nil
}

// SetSaleActive toggles the sale's pause flag.
func (c *Client) SetSaleActive(ctx context.Context, id ledger.SaleID, active bool) error {
	req := &services.SetActiveRequest{SaleID: id, Active: active}
	return postSigned[services.SetActiveRequest, services.ActiveResponse](ctx, c, fmt.Sprintf("/sales/%d/active", id), req, nil)
}

// TransferSaleOwnership hands the sale to newOwner.
func (c *Client) TransferSaleOwnership(ctx context.Context, id ledger.SaleID, newOwner identity.Principal) error {
	req := &services.TransferOwnershipRequest{SaleID: id, NewOwner: newOwner.String()}
	return postSigned[services.TransferOwnershipRequest, struct{}](ctx, c, fmt.Sprintf("/sales/%d/owner", id), req, nil)
}

// ContributeEncrypted submits an opaque encrypted contribution payload.
func (c *Client) ContributeEncrypted(ctx context.Context, id ledger.SaleID, payload ledger.Payload) error {
	req := &services.ContributeRequest{SaleID: id, Payload: payload}
	return postSigned[services.ContributeRequest, struct{}](ctx, c, fmt.Sprintf("/sales/%d/contributions", id), req, nil)
}

// FinalizeSale closes the sale with an opaque summary commitment.
func (c *Client) FinalizeSale(ctx context.Context, id ledger.SaleID, summary ledger.Payload) error {
	req := &services.FinalizeRequest{SaleID: id, Summary: summary}
	return postSigned[services.FinalizeRequest, struct{}](ctx, c, fmt.Sprintf("/sales/%d/finalize", id), req, nil)
}

// ClaimAllocationEncrypted redeems this principal's allocation payload.
func (c *Client) ClaimAllocationEncrypted(ctx context.Context, id ledger.SaleID, allocation ledger.Payload) error {
	req := &services.ClaimRequest{SaleID: id, Allocation: allocation}
	return postSigned[services.ClaimRequest, struct{}](ctx, c, fmt.Sprintf("/sales/%d/claim", id), req, nil)
}

// Sale fetches the sale record.
func (c *Client) Sale(ctx context.Context, id ledger.SaleID) (*ledger.Sale, error) {
	var sale ledger.Sale
	if err := c.get(ctx, fmt.Sprintf("/sales/%d", id), &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Sales fetches all sale records.
func (c *Client) Sales(ctx context.Context) ([]ledger.Sale, error) {
	var sales []ledger.Sale
	if err := c.get(ctx, "/sales", &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// IsActive reports the derived active predicate for the sale.
func (c *Client) IsActive(ctx context.Context, id ledger.SaleID) (bool, error) {
	var resp services.ActiveResponse
	if err := c.get(ctx, fmt.Sprintf("/sales/%d/active", id), &resp); err != nil {
		return false, err
	}
	return resp.Active, nil
}

// Aggregates fetches the sale's counter snapshot.
func (c *Client) Aggregates(ctx context.Context, id ledger.SaleID) (*ledger.Aggregates, error) {
	var aggregates ledger.Aggregates
	if err := c.get(ctx, fmt.Sprintf("/sales/%d/aggregates", id), &aggregates); err != nil {
		return nil, err
	}
	return &aggregates, nil
}

// Position fetches this principal's position for the sale.
func (c *Client) Position(ctx context.Context, id ledger.SaleID) (*ledger.Position, error) {
	var pos ledger.Position
	path := fmt.Sprintf("/sales/%d/positions/%s", id, c.Principal().String())
	if err := c.get(ctx, path, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// Events fetches the event log entries with Seq > since.
func (c *Client) Events(ctx context.Context, since uint64) ([]ledger.Event, error) {
	var resp services.EventsResponse
	path := "/events"
	if since > 0 {
		path += "?since=" + strconv.FormatUint(since, 10)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// postSigned signs req, POSTs it, and decodes the response into out when
// out is non-nil.
func postSigned[T any, R any](ctx context.Context, c *Client, path string, req *T, out *R) error {
	signed, err := identity.NewSigned(c.signingKey, req)
	if err != nil {
		return fmt.Errorf("signing request: %w", err)
	}

	body, err := services.SerializeMessage(signed)
	if err != nil {
		return fmt.Errorf("serializing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error response into the matching ledger sentinel, or
// a descriptive error when the body carries no known kind.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp services.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Kind != "" {
		if sentinel := services.ErrorForKind(errResp.Kind); sentinel != nil {
			return sentinel
		}
	}

	return fmt.Errorf("launchpad returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
