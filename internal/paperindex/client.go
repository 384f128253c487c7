// Package paperindex содержит клиент внешнего индекса научных статей.
package paperindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/config"
	"github.com/researchnest/researchnest/internal/models"
)

type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент индекса статей.
func NewClient(cfg config.PaperIndex) *Client {
	timeout := cfg.PaperIndexTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimRight(cfg.PaperIndexURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search запрашивает у индекса до limit статей по теме и ключевым словам.
// Тема и ключевые слова склеиваются в одну поисковую строку.
func (c *Client) Search(ctx context.Context, topic string, keywords []string, limit int) ([]models.Paper, error) {
	query := topic
	if len(keywords) > 0 {
		query += " " + strings.Join(keywords, " ")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(SearchRequest{Query: query, Limit: limit}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/search", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}
	return searchResp.Papers, nil
}
