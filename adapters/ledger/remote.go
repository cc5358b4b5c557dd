package ledger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/ports"
)

// RemoteConfig configures the HTTP credit ledger client.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RemoteLedger reads remaining credits from an HTTP billing service.
//
// Expected endpoints:
//
//	GET {base}/v1/principals/{externalID}/credits
//	GET {base}/v1/customers/{customerID}/credits
//
// A 200 body of {"remaining_credits": <int>} is a known balance, a JSON
// null (or missing field) and a 404 both mean "no ledger entry".
type RemoteLedger struct {
	config RemoteConfig
	client *http.Client
}

// NewRemoteLedger creates a new HTTP-backed credit ledger.
func NewRemoteLedger(config RemoteConfig) *RemoteLedger {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &RemoteLedger{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// RemainingByExternalID looks up the balance by internal user id.
func (l *RemoteLedger) RemainingByExternalID(ctx context.Context, userID string) (credit.Balance, error) {
	return l.fetch(ctx, "/v1/principals/"+url.PathEscape(userID)+"/credits")
}

// RemainingByCustomerID looks up the balance by legacy customer id.
func (l *RemoteLedger) RemainingByCustomerID(ctx context.Context, customerID string) (credit.Balance, error) {
	return l.fetch(ctx, "/v1/customers/"+url.PathEscape(customerID)+"/credits")
}

func (l *RemoteLedger) fetch(ctx context.Context, path string) (credit.Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.BaseURL+path, nil)
	if err != nil {
		return credit.None(), fmt.Errorf("build ledger request: %w", err)
	}
	if l.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.config.APIKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return credit.None(), fmt.Errorf("ledger request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return credit.None(), nil
	}
	if resp.StatusCode != http.StatusOK {
		return credit.None(), fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return credit.None(), fmt.Errorf("read ledger response: %w", err)
	}

	remaining := gjson.GetBytes(body, "remaining_credits")
	if !remaining.Exists() || remaining.Type == gjson.Null {
		return credit.None(), nil
	}
	return credit.Of(remaining.Int()), nil
}

// Ensure interface compliance.
var _ ports.CreditLedger = (*RemoteLedger)(nil)
