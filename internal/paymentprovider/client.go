// Package paymentprovider содержит клиент платёжного провайдера.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/config"
)

type Client struct {
	apiURL     string
	secretKey  string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного провайдера.
func NewClient(cfg config.PaymentProvider) *Client {
	return &Client{
		apiURL:     strings.TrimRight(cfg.PaymentAPIURL, "/"),
		secretKey:  cfg.PaymentSecretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyTransaction запрашивает у провайдера состояние транзакции
// по её референсу.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyTransactionResponse, error) {
	endpoint := c.apiURL + "/transaction/verify/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var verifyResp VerifyTransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}
