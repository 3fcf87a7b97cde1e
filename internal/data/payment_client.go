package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/conf"
	errs "github.com/alumnet-cloud/entitlement-service/internal/errors"
)

type paymentGatewayClient struct {
	base   string
	client *http.Client
	log    *log.Helper
}

// NewPaymentGatewayClient builds the HTTP client for the external payment
// gateway's transaction lookup endpoint.
func NewPaymentGatewayClient(c *conf.Bootstrap, logger log.Logger) biz.PaymentGateway {
	base := ""
	if c.Billing != nil {
		base = c.Billing.PaymentGatewayAddr
	}
	return &paymentGatewayClient{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.NewHelper(logger),
	}
}

type gatewayTransaction struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	InvoiceURL    string  `json:"invoiceUrl"`
}

// VerifyTransaction fetches the transaction from the gateway and accepts it
// only when the gateway reports it settled.
func (c *paymentGatewayClient) VerifyTransaction(ctx context.Context, transactionID string) (*biz.PaymentConfirmation, error) {
	u := fmt.Sprintf("%s/v1/transactions/%s", c.base, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("payment gateway request failed: %v", err)
		return nil, errs.Internal(fmt.Sprintf("payment gateway unreachable: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.BadRequest("unknown payment transaction " + transactionID)
	case resp.StatusCode != http.StatusOK:
		return nil, errs.Internal(fmt.Sprintf("payment gateway returned %d", resp.StatusCode))
	}

	var tx gatewayTransaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, errs.Internal(fmt.Sprintf("decode gateway response: %v", err))
	}
	if tx.Status != "SETTLED" {
		return nil, errs.Conflict(fmt.Sprintf("transaction %s is %s, not SETTLED", transactionID, tx.Status))
	}
	return &biz.PaymentConfirmation{
		TransactionID: tx.TransactionID,
		Amount:        tx.Amount,
		InvoiceURL:    tx.InvoiceURL,
	}, nil
}
