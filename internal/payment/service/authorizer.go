package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mediflow/billing/internal/config"
	"github.com/mediflow/billing/internal/observability/tracing"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
)

// NewAuthorizer picks the terminal bridge implementation. Without a bridge
// URL configured, transaction numbers are trusted as presented: they were
// already approved by the physical terminal before the cashier keyed them in.
func NewAuthorizer(cfg config.Config) paymentdomain.Authorizer {
	if cfg.TerminalBridgeURL == "" {
		return terminalAuthorizer{}
	}
	return &bridgeAuthorizer{
		url: cfg.TerminalBridgeURL,
		client: tracing.WrapHTTPClient(&http.Client{
			Timeout: 10 * time.Second,
		}),
	}
}

type terminalAuthorizer struct{}

func (terminalAuthorizer) Authorize(_ context.Context, _ paymentdomain.AuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
	return paymentdomain.AuthorizeResult{Approved: true, Code: "00"}, nil
}

// bridgeAuthorizer asks the card terminal bridge to confirm a transaction
// number before the charge flips to paid.
type bridgeAuthorizer struct {
	url    string
	client *http.Client
}

type bridgeRequest struct {
	ChargeNo      string `json:"charge_no"`
	Method        string `json:"method"`
	TransactionNo string `json:"transaction_no"`
	Amount        string `json:"amount"`
}

type bridgeResponse struct {
	Approved bool   `json:"approved"`
	Code     string `json:"code"`
}

func (a *bridgeAuthorizer) Authorize(ctx context.Context, req paymentdomain.AuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
	body, err := json.Marshal(bridgeRequest{
		ChargeNo:      req.ChargeNo,
		Method:        string(req.Method),
		TransactionNo: req.TransactionNo,
		Amount:        req.Amount.StringFixed(2),
	})
	if err != nil {
		return paymentdomain.AuthorizeResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return paymentdomain.AuthorizeResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return paymentdomain.AuthorizeResult{}, fmt.Errorf("terminal bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return paymentdomain.AuthorizeResult{}, fmt.Errorf("terminal bridge: status %d", resp.StatusCode)
	}

	var verdict bridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return paymentdomain.AuthorizeResult{}, fmt.Errorf("terminal bridge: %w", err)
	}
	return paymentdomain.AuthorizeResult{Approved: verdict.Approved, Code: verdict.Code}, nil
}
