// Package federated содержит клиент провайдера федеративных сессий.
// Провайдер обменивает непрозрачный идентификатор сессии на подтверждённую
// почту и имя пользователя.
package federated

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/config"
)

// ErrInvalidSession — сессия неизвестна провайдеру или истекла.
var ErrInvalidSession = errors.New("invalid federated session")

type Client struct {
	apiURL     string
	httpClient *http.Client
}

type sessionResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewClient создаёт новый клиент провайдера сессий.
func NewClient(cfg config.Federated) *Client {
	timeout := cfg.FederatedTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimRight(cfg.FederatedAPIURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// VerifySession возвращает почту и имя владельца сессии.
func (c *Client) VerifySession(ctx context.Context, session string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/session", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", "", ErrInvalidSession
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", errors.New("unexpected status: " + resp.Status)
	}

	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return "", "", err
	}
	if sess.Email == "" {
		return "", "", ErrInvalidSession
	}
	return sess.Email, sess.Name, nil
}
